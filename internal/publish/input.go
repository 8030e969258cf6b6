package publish

import (
	"strconv"
	"strings"
	"time"

	"github.com/nomadhub1/nomadhub/internal/slug"
	"github.com/nomadhub1/nomadhub/internal/upload"
)

// MaxImageSize is the ceiling for uploaded images and avatars
const MaxImageSize = 2 << 20

// AllowedImageTypes are the declared content types accepted for uploads
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

const dateLayout = "2006-01-02"

// ImageSource is where an image slot's value comes from: an UploadSource,
// a LinkSource, or nil when the form left the slot empty.
type ImageSource interface {
	imageSource()
}

// UploadSource is a file sent with the form
type UploadSource struct {
	File *upload.File
}

// LinkSource is a URL typed into the form
type LinkSource struct {
	URL string
}

func (UploadSource) imageSource() {}
func (LinkSource) imageSource()   {}

// ChooseSource picks the slot's source. An upload always wins over a link.
func ChooseSource(file *upload.File, link string) ImageSource {
	if file != nil {
		return UploadSource{File: file}
	}
	if link = strings.TrimSpace(link); link != "" {
		return LinkSource{URL: link}
	}
	return nil
}

// Input is the article form as submitted. Values are raw; Publisher validates them.
type Input struct {
	Title       string
	Description string
	Markdown    string
	NicheID     string
	Author      string
	AuthorTitle string
	ArticleDate string
	Badge       string

	CategoryIDs []string
	// CategoriesSet is false when the form carried no category field at all.
	// On update that leaves the existing associations untouched.
	CategoriesSet bool

	Image  ImageSource
	Avatar ImageSource
}

type checkedInput struct {
	title       string
	description *string
	markdown    string
	nicheID     int64
	author      *string
	authorTitle *string
	articleDate *time.Time
	badge       *string
	categoryIDs []int64
	baseSlug    string
}

func (in Input) validate() (*checkedInput, error) {
	verr := &ValidationError{}
	v := &checkedInput{
		title:       strings.TrimSpace(in.Title),
		description: optional(in.Description),
		markdown:    in.Markdown,
		author:      optional(in.Author),
		authorTitle: optional(in.AuthorTitle),
		badge:       optional(in.Badge),
	}

	if v.title == "" {
		verr.add("title", "Title is required.")
	} else if v.baseSlug = slug.Generate(v.title); v.baseSlug == "" {
		verr.add("title", "Title must contain at least one Latin letter or digit.")
	}
	if strings.TrimSpace(in.Markdown) == "" {
		verr.add("markdown", "Content is required.")
	}

	switch niche := strings.TrimSpace(in.NicheID); {
	case niche == "":
		verr.add("niche_id", "Niche is required.")
	default:
		id, err := strconv.ParseInt(niche, 10, 64)
		if err != nil || id <= 0 {
			verr.add("niche_id", "Niche %q is not valid.", niche)
		}
		v.nicheID = id
	}

	if date := strings.TrimSpace(in.ArticleDate); date != "" {
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			verr.add("article_date", "Article date must be formatted YYYY-MM-DD.")
		} else {
			v.articleDate = &t
		}
	}

	seen := make(map[int64]bool, len(in.CategoryIDs))
	for _, raw := range in.CategoryIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			verr.add("category_ids", "Category %q is not valid.", raw)
			continue
		}
		if !seen[id] {
			seen[id] = true
			v.categoryIDs = append(v.categoryIDs, id)
		}
	}

	checkUpload(verr, "image", "Image", in.Image)
	checkUpload(verr, "author_avatar", "Author avatar", in.Avatar)

	if len(verr.Problems) > 0 {
		return nil, verr
	}
	return v, nil
}

func checkUpload(verr *ValidationError, field, label string, src ImageSource) {
	up, ok := src.(UploadSource)
	if !ok || up.File == nil {
		return
	}
	if !AllowedImageTypes[strings.ToLower(up.File.MimeType)] {
		verr.add(field, "%s: invalid file type.", label)
	}
	if up.File.Size > MaxImageSize {
		verr.add(field, "%s: file too large.", label)
	}
}

// optional trims s and maps empty to nil
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
