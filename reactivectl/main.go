package main

import (
	"bufio"
	"log"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	"bringyour.com/reactive/reactive"
)

const ReactiveCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

type entry struct {
	key   string
	value string
}

func entryKey(value *entry) string {
	return value.key
}

func entryEqual(a *entry, b *entry) bool {
	return a.value == b.value
}

func main() {
	usage := `Reactive control. Drives a change-set pipeline from stdin and
prints every emitted change set.

In watch mode, commands are read one per line:
    add <key> <value>
    remove <key>
    refresh <key>
    diff <key>=<value> ...
    clear

In combine mode, each line addresses a named source:
    attach <source>
    detach <source>
    <source> add <key> <value>
    <source> remove <key>

Usage:
    reactivectl watch
    reactivectl combine (and | or | xor | except)

Options:
    -h --help  Show this screen.
    --version  Show version.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ReactiveCtlVersion)
	if err != nil {
		panic(err)
	}

	if watch_, _ := opts.Bool("watch"); watch_ {
		watch()
	} else if combine_, _ := opts.Bool("combine"); combine_ {
		combine(combineOperator(opts))
	}
}

func combineOperator(opts docopt.Opts) reactive.CombineOperator {
	if and_, _ := opts.Bool("and"); and_ {
		return reactive.CombineOperatorAnd
	}
	if or_, _ := opts.Bool("or"); or_ {
		return reactive.CombineOperatorOr
	}
	if xor_, _ := opts.Bool("xor"); xor_ {
		return reactive.CombineOperatorXor
	}
	return reactive.CombineOperatorExcept
}

func printObserver(tag string) reactive.Observer[*reactive.ChangeSet[string, string]] {
	return reactive.NewObserver(
		func(changeSet *reactive.ChangeSet[string, string]) {
			Out.Printf("%s %s", tag, changeSet)
		},
		func(err error) {
			Out.Printf("%s error: %v", tag, err)
		},
		func() {
			Out.Printf("%s complete", tag)
		},
	)
}

// projects entry caches to their value strings for printing
func values(source reactive.Observable[*reactive.ChangeSet[string, *entry]]) reactive.Observable[*reactive.ChangeSet[string, string]] {
	return reactive.Transform(source, func(value *entry, key string) string {
		return value.value
	})
}

func watch() {
	cache := reactive.NewSourceCache(entryKey)

	subscription := values(cache.Connect()).Subscribe(printObserver("watch"))
	defer subscription.Dispose()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "add":
			if len(fields) < 3 {
				Err.Printf("add <key> <value>")
				continue
			}
			cache.Edit(func(updater *reactive.CacheUpdater[string, *entry]) {
				updater.AddOrUpdate(&entry{key: fields[1], value: fields[2]})
			})
		case "remove":
			if len(fields) < 2 {
				Err.Printf("remove <key>")
				continue
			}
			cache.Edit(func(updater *reactive.CacheUpdater[string, *entry]) {
				updater.RemoveKey(fields[1])
			})
		case "refresh":
			if len(fields) < 2 {
				Err.Printf("refresh <key>")
				continue
			}
			cache.Edit(func(updater *reactive.CacheUpdater[string, *entry]) {
				updater.RefreshKey(fields[1])
			})
		case "diff":
			newItems := []*entry{}
			ok := true
			for _, field := range fields[1:] {
				key, value, found := strings.Cut(field, "=")
				if !found {
					Err.Printf("diff <key>=<value> ...")
					ok = false
					break
				}
				newItems = append(newItems, &entry{key: key, value: value})
			}
			if !ok {
				continue
			}
			cache.EditDiff(newItems, entryEqual)
		case "clear":
			cache.Edit(func(updater *reactive.CacheUpdater[string, *entry]) {
				updater.Clear()
			})
		default:
			Err.Printf("Unknown command: %s", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		glog.Errorf("[ctl]stdin: %v", err)
	}
	cache.Complete()
}

func combine(operator reactive.CombineOperator) {
	sources := map[string]*reactive.SourceCache[string, *entry]{}
	attached := reactive.NewSourceList[reactive.Observable[*reactive.ChangeSet[string, *entry]]]()
	// attach order, to detach by position
	attachedNames := []string{}

	combined := reactive.DynamicCombine(
		operator,
		attached.Connect(),
		&reactive.CombineSettings[*entry]{
			Equality: entryEqual,
		},
	)
	subscription := values(combined).Subscribe(printObserver(strings.ToLower(operator.String())))
	defer subscription.Dispose()

	sourceFor := func(name string) *reactive.SourceCache[string, *entry] {
		source, ok := sources[name]
		if !ok {
			source = reactive.NewSourceCache(entryKey)
			sources[name] = source
		}
		return source
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "attach":
			if len(fields) < 2 {
				Err.Printf("attach <source>")
				continue
			}
			name := fields[1]
			if 0 <= indexOf(attachedNames, name) {
				Err.Printf("Already attached: %s", name)
				continue
			}
			attached.Add(sourceFor(name).Connect())
			attachedNames = append(attachedNames, name)
		case "detach":
			if len(fields) < 2 {
				Err.Printf("detach <source>")
				continue
			}
			i := indexOf(attachedNames, fields[1])
			if i < 0 {
				Err.Printf("Not attached: %s", fields[1])
				continue
			}
			attached.Edit(func(updater *reactive.ListUpdater[reactive.Observable[*reactive.ChangeSet[string, *entry]]]) {
				updater.RemoveAt(i)
			})
			attachedNames = append(attachedNames[:i], attachedNames[i+1:]...)
		default:
			if len(fields) < 3 {
				Err.Printf("<source> (add | remove) <key> [<value>]")
				continue
			}
			source := sourceFor(fields[0])
			switch fields[1] {
			case "add":
				if len(fields) < 4 {
					Err.Printf("<source> add <key> <value>")
					continue
				}
				source.Edit(func(updater *reactive.CacheUpdater[string, *entry]) {
					updater.AddOrUpdate(&entry{key: fields[2], value: fields[3]})
				})
			case "remove":
				source.Edit(func(updater *reactive.CacheUpdater[string, *entry]) {
					updater.RemoveKey(fields[2])
				})
			default:
				Err.Printf("Unknown command: %s %s", fields[0], fields[1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		glog.Errorf("[ctl]stdin: %v", err)
	}
}

func indexOf(names []string, name string) int {
	for i, candidate := range names {
		if candidate == name {
			return i
		}
	}
	return -1
}
