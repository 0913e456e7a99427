package document

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/presemt/presemt/backend-go/internal/plane"
)

func TestFromPlane(t *testing.T) {
	p := plane.New()
	text, err := plane.NewObject("obj_t", plane.KindText, plane.TextPayload{Text: "hi", FontSize: 20}, plane.Size{Width: 30, Height: 24}, plane.Point{X: 10, Y: 10})
	if err != nil {
		t.Fatal(err)
	}
	video, err := plane.NewObject("obj_v", plane.KindVideo, plane.VideoPayload{Source: "a.avi"}, plane.Size{Width: 320, Height: 240}, plane.Point{})
	if err != nil {
		t.Fatal(err)
	}
	p.Add(text)
	p.Add(video)
	video.SetSelected(true)

	doc := FromPlane("sess_1", "demo", p)
	if len(doc.Objects) != 2 || doc.Objects[0].ID != "obj_t" || doc.Objects[1].Type != ObjectTypeVideo {
		t.Fatalf("objects = %+v", doc.Objects)
	}
	if raw, _ := json.Marshal(doc); strings.Contains(string(raw), "selected") || strings.Contains(string(raw), "selection") {
		t.Errorf("document carries selection state: %s", raw)
	}
	if c := doc.Objects[0].Transform.Center(); c != (plane.Point{X: 10, Y: 10}) {
		t.Errorf("text center = %v", c)
	}

	payload, err := doc.Objects[0].Payload()
	if err != nil {
		t.Fatal(err)
	}
	if payload != (plane.TextPayload{Text: "hi", FontSize: 20}) {
		t.Errorf("text payload = %+v", payload)
	}
	payload, err = doc.Objects[1].Payload()
	if err != nil {
		t.Fatal(err)
	}
	if payload != (plane.VideoPayload{Source: "a.avi"}) {
		t.Errorf("video payload = %+v", payload)
	}
	if got := doc.Objects[1].Transform.Plane(); got != video.Transform() {
		t.Errorf("transform = %+v, want %+v", got, video.Transform())
	}
}

func TestPayloadRejectsUnknownType(t *testing.T) {
	n := ObjectNode{ID: "x", Type: "Audio", Data: json.RawMessage(`{}`)}
	if _, err := n.Payload(); !errors.Is(err, plane.ErrUnsupportedKind) {
		t.Errorf("error = %v", err)
	}
	n = ObjectNode{ID: "y", Type: ObjectTypeText, Data: json.RawMessage(`[1,2]`)}
	if _, err := n.Payload(); err == nil {
		t.Error("bad text data accepted")
	}
}

func TestSampleDocument(t *testing.T) {
	doc := NewSampleDocument("sess_1")
	seen := map[ObjectType]bool{}
	for _, n := range doc.Objects {
		seen[n.Type] = true
		if _, err := n.Payload(); err != nil {
			t.Errorf("%s: %v", n.ID, err)
		}
	}
	if len(seen) != 3 {
		t.Errorf("kinds = %v", seen)
	}
	if doc.Grid.Spacing != 50 {
		t.Errorf("grid = %+v", doc.Grid)
	}
}
