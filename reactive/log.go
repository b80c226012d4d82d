package reactive

import (
	"github.com/golang/glog"
)

// Logging convention in the `reactive` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on
//     normal operation.
//     this includes:
//     - replay invariant violations surfaced to a downstream observer
//     - abnormal teardown
// Error:
//     unrecoverable crash details
//     this includes:
//     - selector and predicate panics recovered and converted to
//       terminal stream errors
// V(1):
//     key events for trace debugging
//     this includes:
//     - per-emission summaries tagged with the operator, e.g. [combine], [join]

// records a recovered selector/predicate panic before it is converted into a
// terminal stream error
func logRecovered(tag string, r any) {
	glog.Errorf("[%s]recovered: %v", tag, r)
}
