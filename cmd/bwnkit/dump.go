package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/robopat/bwnkit/javaio"
)

// printSummary writes an indented one-line-per-node tree of a decoded
// graph. Composites already printed show up as cycle markers, so shared
// references and the synchronized wrappers' self-locks stay readable.
func printSummary(w io.Writer, v javaio.Value, indent int, seen map[javaio.Value]bool) {
	prefix := strings.Repeat("  ", indent)
	switch t := v.(type) {
	case nil, javaio.Null:
		fmt.Fprintf(w, "%snull\n", prefix)
	case javaio.String:
		s := string(t)
		if len(s) > 60 {
			s = s[:60] + "..."
		}
		fmt.Fprintf(w, "%s%q\n", prefix, s)
	case javaio.BlockData:
		fmt.Fprintf(w, "%s<blockdata: %d bytes>\n", prefix, len(t.Data))
	case *javaio.Ref:
		switch target := t.Target.(type) {
		case *javaio.Object:
			fmt.Fprintf(w, "%s<ref %#x: %s>\n", prefix, t.Handle, target.Class.Name)
		case nil:
			fmt.Fprintf(w, "%s<ref %#x: dangling>\n", prefix, t.Handle)
		default:
			printSummary(w, target, indent, seen)
		}
	case *javaio.Object:
		if seen[t] {
			fmt.Fprintf(w, "%s<cycle: %s>\n", prefix, t.Class.Name)
			return
		}
		seen[t] = true
		fmt.Fprintf(w, "%sobject %s (handle %#x)\n", prefix, t.Class.Name, t.Handle)
		for _, slot := range t.Fields {
			fmt.Fprintf(w, "%s  .%s:\n", prefix, slot.Name)
			printSummary(w, slot.Value, indent+2, seen)
		}
		if len(t.Annotations) > 0 {
			fmt.Fprintf(w, "%s  [annotations]\n", prefix)
			for _, ann := range t.Annotations {
				printSummary(w, ann, indent+2, seen)
			}
		}
	case *javaio.Array:
		if seen[t] {
			fmt.Fprintf(w, "%s<cycle: %s>\n", prefix, t.Class.Name)
			return
		}
		seen[t] = true
		fmt.Fprintf(w, "%sarray %s [%d] (handle %#x)\n", prefix, t.Class.Name, len(t.Elements), t.Handle)
		for _, elem := range t.Elements {
			printSummary(w, elem, indent+1, seen)
		}
	case *javaio.Enum:
		fmt.Fprintf(w, "%senum %s.%s\n", prefix, t.Class.Name, t.Constant)
	case *javaio.Class:
		fmt.Fprintf(w, "%sclass %s\n", prefix, t.Desc.Name)
	case *javaio.ClassDesc:
		fmt.Fprintf(w, "%sclassdesc %s\n", prefix, t.Name)
	default:
		fmt.Fprintf(w, "%s%v\n", prefix, t)
	}
}

// graphJSON projects a decoded graph into JSON-encodable values.
// Composite nodes become maps with __class__/__array__/__enum__ markers;
// seen tracks the current path so cycles collapse to marker strings
// while shared nodes still expand at each occurrence.
func graphJSON(v javaio.Value, seen map[javaio.Value]bool) any {
	switch t := v.(type) {
	case nil, javaio.Null:
		return nil
	case javaio.Bool:
		return bool(t)
	case javaio.Byte:
		return int64(t)
	case javaio.Char:
		return int64(t)
	case javaio.Short:
		return int64(t)
	case javaio.Int:
		return int64(t)
	case javaio.Long:
		return int64(t)
	case javaio.Float:
		return float64(t)
	case javaio.Double:
		return float64(t)
	case javaio.String:
		return string(t)
	case javaio.BlockData:
		return map[string]any{"__blockdata__": hex.EncodeToString(t.Data)}
	case *javaio.Ref:
		if t.Target == nil {
			return fmt.Sprintf("<unresolved:%#x>", t.Handle)
		}
		return graphJSON(t.Target, seen)
	case *javaio.Object:
		if seen[t] {
			return "<cycle:" + t.Class.Name + ">"
		}
		seen[t] = true
		defer delete(seen, t)
		m := map[string]any{"__class__": t.Class.Name}
		for _, slot := range t.Fields {
			m[slot.Name] = graphJSON(slot.Value, seen)
		}
		if len(t.Annotations) > 0 {
			anns := make([]any, 0, len(t.Annotations))
			for _, ann := range t.Annotations {
				anns = append(anns, graphJSON(ann, seen))
			}
			m["__annotations__"] = anns
		}
		return m
	case *javaio.Array:
		if seen[t] {
			return "<cycle:" + t.Class.Name + ">"
		}
		seen[t] = true
		defer delete(seen, t)
		elems := make([]any, 0, len(t.Elements))
		for _, elem := range t.Elements {
			elems = append(elems, graphJSON(elem, seen))
		}
		return map[string]any{"__array__": t.Class.Name, "__elements__": elems}
	case *javaio.Enum:
		return map[string]any{"__enum__": t.Class.Name, "__value__": t.Constant}
	case *javaio.Class:
		return map[string]any{"__classdesc__": t.Desc.Name}
	case *javaio.ClassDesc:
		return map[string]any{"__classdesc__": t.Name}
	default:
		return fmt.Sprintf("%v", t)
	}
}
