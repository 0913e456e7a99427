package document

import (
	"encoding/json"
	"time"

	"github.com/presemt/presemt/backend-go/internal/typeid"
)

// SampleImage is the placeholder source of new image objects.
const SampleImage = "/static/logo.png"

// NewSampleDocument returns a plane with one object of every kind, laid
// out left to right around the origin.
func NewSampleDocument(id string) *Document {
	doc := NewEmptyDocument(id, "Untitled")
	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	text, _ := json.Marshal(TextData{Text: "Hello world", FontSize: 48})
	image, _ := json.Marshal(MediaData{Source: SampleImage})
	video, _ := json.Marshal(MediaData{Source: "/static/intro.mpg"})

	doc.Objects = []ObjectNode{
		{
			ID:   typeid.NewObjectID(),
			Type: ObjectTypeText,
			// Text boxes are re-measured on load; only the center matters.
			Transform: Transform{X: -400, Y: -30, S: 1, AX: 0, AY: 0},
			Data:      text,
		},
		{
			ID:        typeid.NewObjectID(),
			Type:      ObjectTypeImage,
			Transform: Transform{X: -128, Y: -128, S: 1, AX: 128, AY: 128},
			Width:     256,
			Height:    256,
			Data:      image,
		},
		{
			ID:        typeid.NewObjectID(),
			Type:      ObjectTypeVideo,
			Transform: Transform{X: 240, Y: -120, S: 1, R: 0.1, AX: 160, AY: 120},
			Width:     320,
			Height:    240,
			Data:      video,
		},
	}
	return doc
}
