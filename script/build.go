package script

import (
	"encoding/binary"
	"fmt"

	"github.com/robopat/bwnkit/javaio"
)

// descs holds the class descriptors shared across one build. Sharing the
// pointers lets the encoder alias every repeat into a back-reference,
// which is what the runtime's own writer produces.
type descs struct {
	hashMap   *javaio.ClassDesc
	arrayList *javaio.ClassDesc
	cowList   *javaio.ClassDesc
	syncMap   *javaio.ClassDesc
	syncList  *javaio.ClassDesc
	comment   *javaio.ClassDesc
}

func plainDesc(name string) *javaio.ClassDesc {
	return &javaio.ClassDesc{
		Name:             name,
		SerialVersionUID: serialUIDs[name],
		Flags:            javaio.ScSerializable,
	}
}

func newDescs() *descs {
	hashMap := &javaio.ClassDesc{
		Name:             classHashMap,
		SerialVersionUID: serialUIDs[classHashMap],
		Flags:            javaio.ScSerializable | javaio.ScWriteMethod,
		Fields: []javaio.FieldDesc{
			{TypeCode: javaio.TypeFloat, Name: "loadFactor"},
			{TypeCode: javaio.TypeInt, Name: "threshold"},
		},
		Super: plainDesc(classAbstractMap),
	}

	abstractList := plainDesc(classAbstractList)
	abstractList.Super = plainDesc(classAbstractCollection)
	arrayList := &javaio.ClassDesc{
		Name:             classArrayList,
		SerialVersionUID: serialUIDs[classArrayList],
		Flags:            javaio.ScSerializable | javaio.ScWriteMethod,
		Fields: []javaio.FieldDesc{
			{TypeCode: javaio.TypeInt, Name: "size"},
		},
		Super: abstractList,
	}

	cowList := &javaio.ClassDesc{
		Name:             classCOWArrayList,
		SerialVersionUID: serialUIDs[classCOWArrayList],
		Flags:            javaio.ScSerializable | javaio.ScWriteMethod,
	}

	syncMap := &javaio.ClassDesc{
		Name:             classSyncMap,
		SerialVersionUID: serialUIDs[classSyncMap],
		Flags:            javaio.ScSerializable,
		Fields: []javaio.FieldDesc{
			{TypeCode: javaio.TypeObject, Name: "m", ClassName: "Ljava/util/Map;"},
			{TypeCode: javaio.TypeObject, Name: "mutex", ClassName: "Ljava/lang/Object;"},
		},
	}

	syncCollection := &javaio.ClassDesc{
		Name:             classSyncCollection,
		SerialVersionUID: serialUIDs[classSyncCollection],
		Flags:            javaio.ScSerializable,
		Fields: []javaio.FieldDesc{
			{TypeCode: javaio.TypeObject, Name: "c", ClassName: "Ljava/util/Collection;"},
			{TypeCode: javaio.TypeObject, Name: "mutex", ClassName: "Ljava/lang/Object;"},
		},
	}
	syncList := &javaio.ClassDesc{
		Name:             classSyncList,
		SerialVersionUID: serialUIDs[classSyncList],
		Flags:            javaio.ScSerializable,
		Fields: []javaio.FieldDesc{
			{TypeCode: javaio.TypeObject, Name: "list", ClassName: "Ljava/util/List;"},
		},
		Super: syncCollection,
	}

	argument := &javaio.ClassDesc{
		Name:             classArgument,
		SerialVersionUID: serialUIDs[classArgument],
		Flags:            javaio.ScSerializable,
		Fields: []javaio.FieldDesc{
			{TypeCode: javaio.TypeObject, Name: "object", ClassName: "Ljava/lang/Object;"},
			{TypeCode: javaio.TypeObject, Name: "sourceCode", ClassName: "Ljava/lang/String;"},
		},
	}
	brownieCommand := &javaio.ClassDesc{
		Name:             classBrownieCommand,
		SerialVersionUID: serialUIDs[classBrownieCommand],
		Flags:            javaio.ScSerializable,
		Fields: []javaio.FieldDesc{
			{TypeCode: javaio.TypeBoolean, Name: "enabled"},
			{TypeCode: javaio.TypeBoolean, Name: "isAddTableCommandIconSelected"},
			{TypeCode: javaio.TypeBoolean, Name: "isChangeWaitTime"},
			{TypeCode: javaio.TypeDouble, Name: "privateWaitTimeSecond"},
			{TypeCode: javaio.TypeObject, Name: "arguments", ClassName: "Lcom/asirrera/brownie/ide/command/Arguments;"},
			{TypeCode: javaio.TypeObject, Name: "findModelOfOption", ClassName: "Lcom/asirrera/brownie/ide/command/option/model/FindOptionModel;"},
			{TypeCode: javaio.TypeObject, Name: "metadata", ClassName: "Ljava/util/HashMap;"},
			{TypeCode: javaio.TypeObject, Name: "object", ClassName: "Ljava/lang/Object;"},
			{TypeCode: javaio.TypeObject, Name: "retryIf", ClassName: "Lcom/asirrera/brownie/ide/command/RetryIf;"},
		},
		Super: argument,
	}
	flowCommand := &javaio.ClassDesc{
		Name:             classFlowCommand,
		SerialVersionUID: serialUIDs[classFlowCommand],
		Flags:            javaio.ScSerializable,
		Fields: []javaio.FieldDesc{
			{TypeCode: javaio.TypeBoolean, Name: "isRetriable"},
			{TypeCode: javaio.TypeObject, Name: "comment", ClassName: "Ljava/lang/String;"},
		},
		Super: brownieCommand,
	}
	comment := &javaio.ClassDesc{
		Name:             classComment,
		SerialVersionUID: serialUIDs[classComment],
		Flags:            javaio.ScSerializable,
		Super:            flowCommand,
	}

	return &descs{
		hashMap:   hashMap,
		arrayList: arrayList,
		cowList:   cowList,
		syncMap:   syncMap,
		syncList:  syncList,
		comment:   comment,
	}
}

// mapCapacity computes the backing-table sizing a HashMap records in its
// write block: the capacity doubles from 16 until it holds size entries
// at the default 0.75 load factor.
func mapCapacity(size int) (capacity, threshold int) {
	capacity = 16
	for float64(capacity)*0.75 < float64(size) {
		capacity *= 2
	}
	return capacity, int(float64(capacity) * 0.75)
}

func intBlock(values ...int) javaio.BlockData {
	data := make([]byte, 0, 4*len(values))
	for _, v := range values {
		data = binary.BigEndian.AppendUint32(data, uint32(int32(v)))
	}
	return javaio.BlockData{Data: data}
}

// newHashMap builds a HashMap object. pairs holds the entries flattened
// key, value, key, value; the write block carries capacity then size.
func newHashMap(desc *javaio.ClassDesc, pairs []javaio.Value) *javaio.Object {
	size := len(pairs) / 2
	capacity, threshold := mapCapacity(size)
	ann := make([]javaio.Value, 0, len(pairs)+1)
	ann = append(ann, intBlock(capacity, size))
	ann = append(ann, pairs...)
	return &javaio.Object{
		Class: desc,
		Fields: []javaio.FieldSlot{
			{Class: classHashMap, Name: "loadFactor", Value: javaio.Float(0.75)},
			{Class: classHashMap, Name: "threshold", Value: javaio.Int(int32(threshold))},
		},
		Annotations: ann,
	}
}

// newArrayList builds an ArrayList object. The write block holds the
// backing-array capacity, which the runtime writes equal to size.
func newArrayList(desc *javaio.ClassDesc, elements []javaio.Value) *javaio.Object {
	ann := make([]javaio.Value, 0, len(elements)+1)
	ann = append(ann, intBlock(len(elements)))
	ann = append(ann, elements...)
	return &javaio.Object{
		Class: desc,
		Fields: []javaio.FieldSlot{
			{Class: classArrayList, Name: "size", Value: javaio.Int(int32(len(elements)))},
		},
		Annotations: ann,
	}
}

func newCOWList(desc *javaio.ClassDesc, elements []javaio.Value) *javaio.Object {
	ann := make([]javaio.Value, 0, len(elements)+1)
	ann = append(ann, intBlock(len(elements)))
	ann = append(ann, elements...)
	return &javaio.Object{Class: desc, Annotations: ann}
}

// Build constructs the object graph of the script: a root HashMap with
// projectName and scriptData entries, scriptData a CopyOnWriteArrayList
// of tabs, each tab a SynchronizedMap whose command list is a
// SynchronizedList locked on the tab map itself.
func Build(s *Script) (javaio.Value, error) {
	if s.ProjectName == "" {
		return nil, fmt.Errorf("script: missing project name")
	}
	d := newDescs()
	tabs := make([]javaio.Value, 0, len(s.Tabs))
	for i, tab := range s.Tabs {
		obj, err := d.buildTab(tab)
		if err != nil {
			return nil, fmt.Errorf("script: tab %d (%q): %w", i, tab.Title, err)
		}
		tabs = append(tabs, obj)
	}
	root := newHashMap(d.hashMap, []javaio.Value{
		javaio.String("projectName"), javaio.String(s.ProjectName),
		javaio.String("scriptData"), newCOWList(d.cowList, tabs),
	})
	return root, nil
}

// Compile builds the graph and serializes it to .bwn bytes.
func Compile(s *Script) ([]byte, error) {
	root, err := Build(s)
	if err != nil {
		return nil, err
	}
	return javaio.Encode(root)
}

// buildTab builds one tab. The wrapper's mutex field points at the
// wrapper itself and the command list shares both the wrapper (as mutex)
// and its backing ArrayList (as c and list); the encoder turns each
// shared pointer into a back-reference.
func (d *descs) buildTab(tab Tab) (*javaio.Object, error) {
	sync := &javaio.Object{Class: d.syncMap}

	commands := make([]javaio.Value, 0, len(tab.Commands))
	for i, cmd := range tab.Commands {
		obj, err := d.buildCommand(cmd)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		commands = append(commands, obj)
	}
	backing := newArrayList(d.arrayList, commands)
	commandData := &javaio.Object{
		Class: d.syncList,
		Fields: []javaio.FieldSlot{
			{Class: classSyncCollection, Name: "c", Value: backing},
			{Class: classSyncCollection, Name: "mutex", Value: sync},
			{Class: classSyncList, Name: "list", Value: backing},
		},
	}

	inner := newHashMap(d.hashMap, []javaio.Value{
		javaio.String("MergeInfoData"), newArrayList(d.arrayList, nil),
		javaio.String("tabTitle"), javaio.String(tab.Title),
		javaio.String("commandData"), commandData,
	})
	sync.Fields = []javaio.FieldSlot{
		{Class: classSyncMap, Name: "m", Value: inner},
		{Class: classSyncMap, Name: "mutex", Value: sync},
	}
	return sync, nil
}

// buildCommand builds one command object. Only comment commands can be
// built from scratch; richer command types carry option models that only
// the runtime itself can produce.
func (d *descs) buildCommand(cmd Command) (*javaio.Object, error) {
	switch cmd.Type {
	case "", "comment":
	default:
		return nil, fmt.Errorf("cannot build %q commands, only comments", cmd.Type)
	}
	return &javaio.Object{
		Class: d.comment,
		Fields: []javaio.FieldSlot{
			{Class: classArgument, Name: "object", Value: javaio.Null{}},
			{Class: classArgument, Name: "sourceCode", Value: javaio.Null{}},
			{Class: classBrownieCommand, Name: "enabled", Value: javaio.Bool(cmd.Enabled)},
			{Class: classBrownieCommand, Name: "isAddTableCommandIconSelected", Value: javaio.Bool(false)},
			{Class: classBrownieCommand, Name: "isChangeWaitTime", Value: javaio.Bool(false)},
			{Class: classBrownieCommand, Name: "privateWaitTimeSecond", Value: javaio.Double(0)},
			{Class: classBrownieCommand, Name: "arguments", Value: javaio.Null{}},
			{Class: classBrownieCommand, Name: "findModelOfOption", Value: javaio.Null{}},
			{Class: classBrownieCommand, Name: "metadata", Value: javaio.Null{}},
			{Class: classBrownieCommand, Name: "object", Value: javaio.Null{}},
			{Class: classBrownieCommand, Name: "retryIf", Value: javaio.Null{}},
			{Class: classFlowCommand, Name: "isRetriable", Value: javaio.Bool(false)},
			{Class: classFlowCommand, Name: "comment", Value: javaio.String(cmd.Comment)},
		},
	}, nil
}
