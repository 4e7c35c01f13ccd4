package diagnostics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/BTreeMap/FieldOps/internal/models"
)

const redactedValue = "<redacted>"

// secretFields never leave the device in clear text.
var secretFields = map[string]bool{"Password": true, "Token": true, "Code": true}

// Render flattens s into a path to value map.
//
// Sum-type variants become path segments, so switching variant shows up as
// paths removed and added rather than as a field change. Elements of lists
// whose items carry an "id" are keyed by it, which keeps the result stable
// when a list is reordered. Empty collections render like absent ones.
func Render(s models.AppState) map[string]string {
	out := make(map[string]string)
	flatten("", tree(s), out)
	return out
}

// tree converts v to a JSON-like value, tagging every sum-type variant with
// its type name.
func tree(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case models.Launching:
		return variant(v, "Phase", v.Phase)
	case models.Operational:
		return variant(v, "Flow", v.Flow)
	case models.FirstRun:
		return variant(v, "DeepLink", v.DeepLink)
	case models.SignUp:
		return variant(v, "Step", v.Step, "DeepLink", v.DeepLink)
	case models.SignIn:
		return variant(v, "Status", v.Status, "DeepLink", v.DeepLink)
	case models.DriverIDEntry:
		return variant(v, "DeepLink", v.DeepLink)
	case models.Main:
		return variant(v, "DeepLink", v.DeepLink)
	}
	return variant(v)
}

// variant encodes v and replaces the named interface fields with their
// tagged form. nested alternates field names and values.
func variant(v any, nested ...any) any {
	fields := fieldsOf(v)
	for i := 0; i+1 < len(nested); i += 2 {
		name := nested[i].(string)
		if child := tree(nested[i+1]); child != nil {
			fields[name] = child
		} else {
			delete(fields, name)
		}
	}
	return map[string]any{typeName(v): fields}
}

func fieldsOf(v any) map[string]any {
	decoded, err := decode(v)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	if m, ok := decoded.(map[string]any); ok {
		return m
	}
	return map[string]any{"value": decoded}
}

func decode(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return out, nil
}

func typeName(v any) string {
	name := fmt.Sprintf("%T", v)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func flatten(path string, v any, out map[string]string) {
	switch v := v.(type) {
	case map[string]any:
		if len(v) == 0 {
			if path != "" {
				out[path] = "{}"
			}
			return
		}
		for k, child := range v {
			flatten(join(path, k), child, out)
		}
	case []any:
		for i, child := range v {
			flatten(path+"["+elementKey(i, child)+"]", child, out)
		}
	case nil:
	case string:
		if secret(path) {
			out[path] = redactedValue
			return
		}
		out[path] = strconv.Quote(v)
	default:
		out[path] = fmt.Sprint(v)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func elementKey(i int, v any) string {
	if m, ok := v.(map[string]any); ok {
		if id, ok := m["id"].(string); ok && id != "" {
			return "id=" + id
		}
	}
	return strconv.Itoa(i)
}

func secret(path string) bool {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	return secretFields[path]
}

// Change is one path that differs between two renders. Before is empty for an
// added path and After is empty for a removed one.
type Change struct {
	Path   string
	Before string
	After  string
}

func (c Change) String() string {
	switch {
	case c.Before == "":
		return "+ " + c.Path + " = " + c.After
	case c.After == "":
		return "- " + c.Path + " = " + c.Before
	}
	return "~ " + c.Path + ": " + c.Before + " -> " + c.After
}

// Diff lists the paths that differ between the renders of before and after,
// sorted by path.
func Diff(before, after models.AppState) []Change {
	var r changeReporter
	cmp.Equal(Render(before), Render(after), cmp.Reporter(&r))
	sort.Slice(r.changes, func(i, j int) bool { return r.changes[i].Path < r.changes[j].Path })
	return r.changes
}

// changeReporter collects the differing map entries reported by cmp.
type changeReporter struct {
	path    cmp.Path
	changes []Change
}

func (r *changeReporter) PushStep(ps cmp.PathStep) { r.path = append(r.path, ps) }

func (r *changeReporter) PopStep() { r.path = r.path[:len(r.path)-1] }

func (r *changeReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	idx, ok := r.path.Last().(cmp.MapIndex)
	if !ok {
		return
	}
	vx, vy := idx.Values()
	r.changes = append(r.changes, Change{Path: idx.Key().String(), Before: text(vx), After: text(vy)})
}

func text(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	return v.String()
}

// EncodeAction returns a canonical JSON form of a with secrets redacted.
func EncodeAction(a models.Action) string {
	if t, ok := a.(models.TokenRefreshed); ok {
		if _, ok := t.Result.Get(); ok {
			return `{"Result":{"ok":"` + redactedValue + `"}}`
		}
	}
	decoded, err := decode(a)
	if err != nil {
		return strconv.Quote(err.Error())
	}
	b, err := json.Marshal(redact(decoded))
	if err != nil {
		return strconv.Quote(err.Error())
	}
	return string(b)
}

func redact(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, child := range v {
			if _, isString := child.(string); isString && secretFields[k] {
				v[k] = redactedValue
				continue
			}
			v[k] = redact(child)
		}
	case []any:
		for i, child := range v {
			v[i] = redact(child)
		}
	}
	return v
}
