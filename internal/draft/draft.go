// Package draft holds the copy-on-write operations on an ArticleDraft.
// Every function returns a new draft and never mutates its input.
package draft

import (
	"fmt"

	apperrors "github.com/Corphon/LocalVoice/internal/errors"
	"github.com/Corphon/LocalVoice/internal/models"
)

// Error codes surfaced by the draft operations.
const (
	CodeUnknownGroup  = "DRAFT_UNKNOWN_GROUP"
	CodeIndexOutRange = "DRAFT_INDEX_OUT_OF_RANGE"
	CodeNotAList      = "DRAFT_GROUP_NOT_LIST"
)

// New returns the initial draft: empty title and body, one blank entry per list group.
func New() models.ArticleDraft {
	return models.ArticleDraft{
		Categories: []string{""},
		ImageURLs:  []string{""},
		VideoURLs:  []string{""},
	}
}

// Clone deep-copies d.
func Clone(d models.ArticleDraft) models.ArticleDraft {
	out := d
	out.Categories = append([]string(nil), d.Categories...)
	out.ImageURLs = append([]string(nil), d.ImageURLs...)
	out.VideoURLs = append([]string(nil), d.VideoURLs...)
	return out
}

// Values returns a copy of the values held by group g. Scalar groups yield one element.
func Values(d models.ArticleDraft, g models.FieldGroup) []string {
	switch g {
	case models.FieldTitle:
		return []string{d.Title}
	case models.FieldContent:
		return []string{d.Content}
	}
	if l := list(&d, g); l != nil {
		return append([]string(nil), (*l)...)
	}
	return nil
}

// Len reports how many entries group g holds.
func Len(d models.ArticleDraft, g models.FieldGroup) int {
	if !g.IsList() {
		if _, ok := models.ParseFieldGroup(string(g)); ok {
			return 1
		}
		return 0
	}
	return len(*list(&d, g))
}

// Update replaces the value at index of group g.
func Update(d models.ArticleDraft, g models.FieldGroup, index int, value string) (models.ArticleDraft, error) {
	if _, ok := models.ParseFieldGroup(string(g)); !ok {
		return d, unknownGroup(g)
	}
	if n := Len(d, g); index < 0 || index >= n {
		return d, apperrors.NewValidationError(
			fmt.Sprintf("index %d out of range for %s (len %d)", index, g, n), nil,
		).WithCode(CodeIndexOutRange)
	}

	out := Clone(d)
	switch g {
	case models.FieldTitle:
		out.Title = value
	case models.FieldContent:
		out.Content = value
	default:
		(*list(&out, g))[index] = value
	}
	return out, nil
}

// Append adds an empty entry to the end of list group g.
func Append(d models.ArticleDraft, g models.FieldGroup) (models.ArticleDraft, error) {
	if _, ok := models.ParseFieldGroup(string(g)); !ok {
		return d, unknownGroup(g)
	}
	if !g.IsList() {
		return d, apperrors.NewValidationError(
			fmt.Sprintf("%s does not accept extra entries", g), nil,
		).WithCode(CodeNotAList)
	}

	out := Clone(d)
	l := list(&out, g)
	*l = append(*l, "")
	return out, nil
}

func list(d *models.ArticleDraft, g models.FieldGroup) *[]string {
	switch g {
	case models.FieldCategories:
		return &d.Categories
	case models.FieldImageURLs:
		return &d.ImageURLs
	case models.FieldVideoURLs:
		return &d.VideoURLs
	default:
		return nil
	}
}

func unknownGroup(g models.FieldGroup) error {
	return apperrors.NewValidationError(fmt.Sprintf("unknown field group %q", g), nil).
		WithCode(CodeUnknownGroup)
}
