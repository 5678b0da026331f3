package script

import (
	"fmt"
	"strings"

	"github.com/robopat/bwnkit/javaio"
)

// deref unwraps back-reference nodes to the entity they point at.
func deref(v javaio.Value) javaio.Value {
	for {
		r, ok := v.(*javaio.Ref)
		if !ok || r.Target == nil {
			return v
		}
		v = r.Target
	}
}

func asObject(v javaio.Value) (*javaio.Object, bool) {
	obj, ok := deref(v).(*javaio.Object)
	return obj, ok
}

func asString(v javaio.Value) (string, bool) {
	s, ok := deref(v).(javaio.String)
	return string(s), ok
}

// mapEntries pairs up the key/value items of a HashMap's write block,
// skipping the capacity/size header.
func mapEntries(obj *javaio.Object) ([][2]javaio.Value, error) {
	var items []javaio.Value
	for _, ann := range obj.Annotations {
		if _, ok := ann.(javaio.BlockData); ok {
			continue
		}
		items = append(items, ann)
	}
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("map of %s has %d unpaired items", obj.Class.Name, len(items))
	}
	pairs := make([][2]javaio.Value, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		pairs = append(pairs, [2]javaio.Value{items[i], items[i+1]})
	}
	return pairs, nil
}

// listElements returns a list's elements from its write block, skipping
// the capacity header.
func listElements(obj *javaio.Object) []javaio.Value {
	var items []javaio.Value
	for _, ann := range obj.Annotations {
		if _, ok := ann.(javaio.BlockData); ok {
			continue
		}
		items = append(items, ann)
	}
	return items
}

// FromGraph projects a decoded object graph back into the script model:
// the inverse of Build, tolerant of graphs produced by the runtime
// itself (synchronized wrappers, shared references, unknown command
// classes).
func FromGraph(root javaio.Value) (*Script, error) {
	obj, ok := asObject(root)
	if !ok || obj.Class == nil || obj.Class.Name != classHashMap {
		return nil, fmt.Errorf("script: root is not a %s", classHashMap)
	}
	entries, err := mapEntries(obj)
	if err != nil {
		return nil, fmt.Errorf("script: root: %w", err)
	}

	s := &Script{}
	for _, kv := range entries {
		key, ok := asString(kv[0])
		if !ok {
			continue
		}
		switch key {
		case "projectName":
			s.ProjectName, _ = asString(kv[1])
		case "scriptData":
			tabs, err := parseTabs(kv[1])
			if err != nil {
				return nil, fmt.Errorf("script: %w", err)
			}
			s.Tabs = tabs
		}
	}
	if s.ProjectName == "" {
		return nil, fmt.Errorf("script: missing projectName entry")
	}
	return s, nil
}

// Parse decodes .bwn bytes and projects them into the script model.
func Parse(data []byte) (*Script, error) {
	root, err := javaio.Decode(data)
	if err != nil {
		return nil, err
	}
	return FromGraph(root)
}

func parseTabs(v javaio.Value) ([]Tab, error) {
	obj, ok := asObject(v)
	if !ok {
		return nil, fmt.Errorf("scriptData is not a list")
	}
	var tabs []Tab
	for i, elem := range listElements(obj) {
		tab, err := parseTab(elem)
		if err != nil {
			return nil, fmt.Errorf("tab %d: %w", i, err)
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

func parseTab(v javaio.Value) (Tab, error) {
	obj, ok := asObject(v)
	if !ok {
		return Tab{}, fmt.Errorf("not an object")
	}
	if obj.Class.Name == classSyncMap {
		m, ok := obj.Field("m")
		if !ok {
			return Tab{}, fmt.Errorf("synchronized wrapper without backing map")
		}
		if obj, ok = asObject(m); !ok {
			return Tab{}, fmt.Errorf("backing map is not an object")
		}
	}
	if obj.Class.Name != classHashMap {
		return Tab{}, fmt.Errorf("unexpected tab class %s", obj.Class.Name)
	}
	entries, err := mapEntries(obj)
	if err != nil {
		return Tab{}, err
	}

	var tab Tab
	for _, kv := range entries {
		key, ok := asString(kv[0])
		if !ok {
			continue
		}
		switch key {
		case "tabTitle":
			tab.Title, _ = asString(kv[1])
		case "commandData":
			commands, err := parseCommands(kv[1])
			if err != nil {
				return Tab{}, err
			}
			tab.Commands = commands
		}
	}
	return tab, nil
}

func parseCommands(v javaio.Value) ([]Command, error) {
	obj, ok := asObject(v)
	if !ok {
		return nil, fmt.Errorf("commandData is not an object")
	}
	// Unwrap the synchronized list down to its backing ArrayList. The
	// list and c fields alias the same object; either serves.
	if obj.Class.Name == classSyncList || obj.Class.Name == classSyncCollection {
		backing, ok := obj.Field("list")
		if !ok {
			backing, ok = obj.Field("c")
		}
		if !ok {
			return nil, fmt.Errorf("synchronized list without backing list")
		}
		if obj, ok = asObject(backing); !ok {
			return nil, fmt.Errorf("backing list is not an object")
		}
	}

	var commands []Command
	for _, elem := range listElements(obj) {
		cmdObj, ok := asObject(elem)
		if !ok || !isCommandClass(cmdObj.Class.Name) {
			continue
		}
		commands = append(commands, parseCommand(cmdObj))
	}
	return commands, nil
}

func isCommandClass(name string) bool {
	return strings.Contains(name, "command") || strings.Contains(name, "Command")
}

// commandType derives the model's short type name from a command class.
func commandType(className string) string {
	if i := strings.LastIndexByte(className, '.'); i >= 0 {
		className = className[i+1:]
	}
	return strings.ToLower(className)
}

// parseCommand projects one command object. Scalar fields are kept by
// name; composite field values (option models, nested metadata) have no
// model representation and are dropped.
func parseCommand(obj *javaio.Object) Command {
	cmd := Command{
		Class:   obj.Class.Name,
		Type:    commandType(obj.Class.Name),
		Enabled: true,
	}
	for _, slot := range obj.Fields {
		switch slot.Name {
		case "enabled":
			if b, ok := deref(slot.Value).(javaio.Bool); ok {
				cmd.Enabled = bool(b)
			}
		case "comment":
			if s, ok := asString(slot.Value); ok {
				cmd.Comment = s
			}
		default:
			if v, ok := scalarValue(slot.Value); ok {
				if cmd.Fields == nil {
					cmd.Fields = make(map[string]any)
				}
				cmd.Fields[slot.Name] = v
			}
		}
	}
	return cmd
}

func scalarValue(v javaio.Value) (any, bool) {
	switch t := deref(v).(type) {
	case javaio.Bool:
		return bool(t), true
	case javaio.Byte:
		return int64(t), true
	case javaio.Char:
		return int64(t), true
	case javaio.Short:
		return int64(t), true
	case javaio.Int:
		return int64(t), true
	case javaio.Long:
		return int64(t), true
	case javaio.Float:
		return float64(t), true
	case javaio.Double:
		return float64(t), true
	case javaio.String:
		return string(t), true
	case *javaio.Enum:
		return t.Class.Name + "." + t.Constant, true
	default:
		return nil, false
	}
}
