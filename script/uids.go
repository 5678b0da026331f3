package script

// Class names and version tags of the collection and command classes the
// foreign runtime serializes. The tags were extracted from captured
// files; emitting different ones makes the runtime refuse the stream.
const (
	classHashMap            = "java.util.HashMap"
	classAbstractMap        = "java.util.AbstractMap"
	classArrayList          = "java.util.ArrayList"
	classAbstractList       = "java.util.AbstractList"
	classAbstractCollection = "java.util.AbstractCollection"
	classCOWArrayList       = "java.util.concurrent.CopyOnWriteArrayList"
	classSyncMap            = "java.util.Collections$SynchronizedMap"
	classSyncCollection     = "java.util.Collections$SynchronizedCollection"
	classSyncList           = "java.util.Collections$SynchronizedList"

	classComment        = "com.asirrera.brownie.ide.command.Comment"
	classFlowCommand    = "com.asirrera.brownie.ide.command.FlowCommand"
	classBrownieCommand = "com.asirrera.brownie.ide.command.BrownieCommand"
	classArgument       = "com.asirrera.brownie.ide.command.Argument"
)

var serialUIDs = map[string]int64{
	classHashMap:            362498820763181265,
	classAbstractMap:        4828766684233562441,
	classArrayList:          8683452581122892189,
	classAbstractList:       4083306618545678451,
	classAbstractCollection: 8925815256423158682,
	classCOWArrayList:       8673264195747942595,
	classSyncMap:            1978198479659022715,
	classSyncCollection:     3053995032091335093,
	classSyncList:           -1472766899164520507,

	classComment:        1,
	classFlowCommand:    1,
	classBrownieCommand: -416088768,
	classArgument:       -8244499117953890091,
}
