package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/prompt-vault/internal/service"
	"github.com/sakif/prompt-vault/internal/tags"
)

// TagsKind says which form a tags value arrived in.
type TagsKind int

const (
	TagsAbsent    TagsKind = iota // missing or null
	TagsDelimited                 // "a, b, c"
	TagsList                      // ["a", "b", "c"]
)

// TagsField is the tags member of a prompt request body. Clients send either
// a comma-delimited string or an array; Canonical turns both into the stored
// list form.
type TagsField struct {
	Kind      TagsKind
	Delimited string
	List      []string
}

// UnmarshalJSON accepts null, a string, or an array of scalars. Numbers and
// booleans inside the array are kept as their literal text; nulls are
// skipped.
func (f *TagsField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = TagsField{Kind: TagsAbsent}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = TagsField{Kind: TagsDelimited, Delimited: s}
		return nil

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		list := make([]string, 0, len(items))
		for i, item := range items {
			tag, ok, err := scalarText(item)
			if err != nil {
				return fmt.Errorf("tags[%d]: %w", i, err)
			}
			if ok {
				list = append(list, tag)
			}
		}
		*f = TagsField{Kind: TagsList, List: list}
		return nil
	}

	return errors.New("tags must be a string or an array of strings")
}

// Canonical returns the normalized tag list for any form of input.
func (f TagsField) Canonical() []string {
	switch f.Kind {
	case TagsDelimited:
		return tags.Split(f.Delimited)
	case TagsList:
		return tags.Normalize(f.List)
	default:
		return []string{}
	}
}

// scalarText renders a JSON scalar as text. ok is false for null.
func scalarText(raw json.RawMessage) (text string, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '{', '[':
		return "", false, errors.New("must be a string")
	default:
		return string(raw), true, nil
	}
}

// FlexBool decodes the loose boolean forms clients send for favorite:
// true, 1, "true" and "1" are true; everything else is false.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case `true`, `1`, `"true"`, `"1"`:
		*b = true
	default:
		*b = false
	}
	return nil
}

// promptRequest is the body of POST /prompts and PUT /prompts/{id}.
type promptRequest struct {
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Tags     TagsField `json:"tags"`
	Notes    *string   `json:"notes"`
	Favorite FlexBool  `json:"favorite"`
}

// toInput converts the wire form into the service input.
func (r promptRequest) toInput() service.PromptInput {
	in := service.PromptInput{
		Title:    r.Title,
		Content:  r.Content,
		Tags:     r.Tags.Canonical(),
		Favorite: bool(r.Favorite),
	}
	if r.Notes != nil {
		in.Notes = *r.Notes
	}
	return in
}
