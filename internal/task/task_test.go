package task

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleTask = `{
	"id": 42,
	"data": {"image": "upload://1/a.png", "caption": "cat", "extra": null},
	"annotations": [{
		"id": "ann-7",
		"result": [{
			"id": "r1",
			"type": "brushlabels",
			"to_name": "image",
			"original_width": 640,
			"original_height": "480",
			"value": {"format": "rle", "rle": [0, 3, 2], "brushlabels": ["Cell"]}
		}]
	}]
}`

func readAll(t *testing.T, input string) []Task {
	t.Helper()
	r := NewReader(strings.NewReader(input))
	var tasks []Task
	for {
		tk, err := r.Next()
		if errors.Is(err, io.EOF) {
			return tasks
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		tasks = append(tasks, tk)
	}
}

func TestReader_Array(t *testing.T) {
	tasks := readAll(t, "  \n["+sampleTask+","+sampleTask+"]\n")
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}

	tk := tasks[0]
	if tk.ID != "42" {
		t.Errorf("task id: got %q, want 42", tk.ID)
	}
	if len(tk.Annotations) != 1 || tk.Annotations[0].ID != "ann-7" {
		t.Fatalf("annotations: got %+v", tk.Annotations)
	}

	res := tk.Annotations[0].Result[0]
	if res.ID != "r1" || res.Type != "brushlabels" || res.ToName != "image" {
		t.Errorf("result header: got %+v", res)
	}
	if w, ok := Int(res.OriginalWidth); !ok || w != 640 {
		t.Errorf("original_width: got %v (%v)", w, ok)
	}
	if h, ok := Int(res.OriginalHeight); !ok || h != 480 {
		t.Errorf("original_height: got %v (%v)", h, ok)
	}

	rle, ok := res.Value["rle"].([]interface{})
	if !ok || len(rle) != 3 {
		t.Fatalf("rle: got %#v", res.Value["rle"])
	}
	if _, isNumber := rle[0].(json.Number); !isNumber {
		t.Errorf("numbers should decode as json.Number, got %T", rle[0])
	}
}

func TestReader_JSONLines(t *testing.T) {
	line := strings.ReplaceAll(strings.ReplaceAll(sampleTask, "\n", ""), "\t", "")
	tasks := readAll(t, line+"\n"+line+"\n\n"+line)
	if len(tasks) != 3 {
		t.Errorf("got %d tasks, want 3", len(tasks))
	}
}

func TestReader_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "[]", " [ ] "} {
		if tasks := readAll(t, input); len(tasks) != 0 {
			t.Errorf("input %q: got %d tasks, want 0", input, len(tasks))
		}
	}
}

func TestReader_Malformed(t *testing.T) {
	r := NewReader(strings.NewReader(`[{"id": 1, "data": [1,2]}]`))
	if _, err := r.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestData_PreservesOrder(t *testing.T) {
	var d Data
	if err := json.Unmarshal([]byte(`{"zeta": "z.png", "alpha": 1, "mid": {"x": 2}}`), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, d.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	key, value, ok := d.First()
	if !ok || key != "zeta" || value != "z.png" {
		t.Errorf("First: got %q=%v (%v)", key, value, ok)
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"zeta":"z.png","alpha":1,"mid":{"x":2}}` {
		t.Errorf("Marshal: got %s", out)
	}
}

func TestData_NullAndNew(t *testing.T) {
	var d Data
	if err := json.Unmarshal([]byte(`null`), &d); err != nil {
		t.Fatalf("Unmarshal null failed: %v", err)
	}
	if d.Len() != 0 {
		t.Errorf("null data: got %d keys", d.Len())
	}
	if _, _, ok := d.First(); ok {
		t.Error("First on empty data should report false")
	}

	d = NewData("image", "a.png", "other", 3, "image", "b.png")
	if d.Len() != 2 {
		t.Errorf("NewData: got %d keys, want 2", d.Len())
	}
	if v, _ := d.Get("image"); v != "b.png" {
		t.Errorf("NewData: later value should win, got %v", v)
	}
}

func TestID_Unmarshal(t *testing.T) {
	tests := []struct {
		input string
		want  ID
	}{
		{`"abc"`, "abc"},
		{`17`, "17"},
		{`12345678901234567890`, "12345678901234567890"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id ID
		if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
		}
		if id != tt.want {
			t.Errorf("Unmarshal(%s): got %q, want %q", tt.input, id, tt.want)
		}
	}

	var id ID
	if err := json.Unmarshal([]byte(`{"x":1}`), &id); err == nil {
		t.Error("expected error for object id")
	}
}

func TestLooseConversions(t *testing.T) {
	if got := String(json.Number("3.50")); got != "3.50" {
		t.Errorf("String(json.Number): got %q", got)
	}
	if got := String(nil); got != "" {
		t.Errorf("String(nil): got %q", got)
	}
	if got := String(float64(7)); got != "7" {
		t.Errorf("String(7.0): got %q", got)
	}

	if f, ok := Float(" 12.5 "); !ok || f != 12.5 {
		t.Errorf("Float(string): got %v (%v)", f, ok)
	}
	if _, ok := Float("abc"); ok {
		t.Error("Float(abc) should fail")
	}
	if _, ok := Float(true); ok {
		t.Error("Float(true) should fail")
	}
	if n, ok := Int(json.Number("640.9")); !ok || n != 640 {
		t.Errorf("Int(640.9): got %v (%v)", n, ok)
	}
	if _, ok := Int(nil); ok {
		t.Error("Int(nil) should fail")
	}

	truthy := []interface{}{"x", true, []interface{}{1}, map[string]interface{}{"a": 1}, json.Number("2"), 1.5}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("Truthy(%#v) should be true", v)
		}
	}
	falsy := []interface{}{nil, "", false, []interface{}{}, map[string]interface{}{}, json.Number("0"), 0.0}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("Truthy(%#v) should be false", v)
		}
	}
}

func TestFromSlice(t *testing.T) {
	it := FromSlice([]Task{{ID: "1"}, {ID: "2"}})
	for _, want := range []ID{"1", "2"} {
		tk, err := it.Next()
		if err != nil || tk.ID != want {
			t.Fatalf("Next: got %q, %v; want %q", tk.ID, err, want)
		}
	}
	if _, err := it.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
