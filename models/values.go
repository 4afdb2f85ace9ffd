package models

import "github.com/goccy/go-json"

// Link, Person, Text and Content are value objects borrowed from syndication
// metadata. They have no identity of their own and live inside the column of
// the feed or entry that owns them.

type Link struct {
	Href      string  `json:"href"`
	Rel       *string `json:"rel,omitempty"`
	MediaType *string `json:"media_type,omitempty"`
	HrefLang  *string `json:"href_lang,omitempty"`
	Title     *string `json:"title,omitempty"`
	Length    *uint64 `json:"length,omitempty"`
}

type Person struct {
	Name  string  `json:"name"`
	Uri   *string `json:"uri,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Text is a piece of text whose ContentType tells renderers how to read it
type Text struct {
	ContentType MediaType `json:"content_type"`
	Src         *string   `json:"src,omitempty"`
	Content     string    `json:"content"`
}

// Content carries either an inline Body or a Src link. Which one is set is
// up to the producer.
type Content struct {
	Body        *string   `json:"body,omitempty"`
	ContentType MediaType `json:"content_type"`
	Length      *uint64   `json:"length,omitempty"`
	Src         *Link     `json:"src,omitempty"`
}

// MissingFieldError reports a required key absent from a serialized object
type MissingFieldError struct {
	Object string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return e.Object + ": missing required field " + e.Field
}

func (l *Link) UnmarshalJSON(data []byte) error {
	var aux struct {
		Href      *string `json:"href"`
		Rel       *string `json:"rel"`
		MediaType *string `json:"media_type"`
		HrefLang  *string `json:"href_lang"`
		Title     *string `json:"title"`
		Length    *uint64 `json:"length"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Href == nil {
		return &MissingFieldError{Object: "link", Field: "href"}
	}

	*l = Link{
		Href:      *aux.Href,
		Rel:       aux.Rel,
		MediaType: aux.MediaType,
		HrefLang:  aux.HrefLang,
		Title:     aux.Title,
		Length:    aux.Length,
	}
	return nil
}

func (p *Person) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name  *string `json:"name"`
		Uri   *string `json:"uri"`
		Email *string `json:"email"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Name == nil {
		return &MissingFieldError{Object: "person", Field: "name"}
	}

	*p = Person{Name: *aux.Name, Uri: aux.Uri, Email: aux.Email}
	return nil
}

func (t *Text) UnmarshalJSON(data []byte) error {
	var aux struct {
		ContentType *MediaType `json:"content_type"`
		Src         *string    `json:"src"`
		Content     *string    `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.ContentType == nil:
		return &MissingFieldError{Object: "text", Field: "content_type"}
	case aux.Content == nil:
		return &MissingFieldError{Object: "text", Field: "content"}
	}

	*t = Text{ContentType: *aux.ContentType, Src: aux.Src, Content: *aux.Content}
	return nil
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var aux struct {
		Body        *string    `json:"body"`
		ContentType *MediaType `json:"content_type"`
		Length      *uint64    `json:"length"`
		Src         *Link      `json:"src"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ContentType == nil {
		return &MissingFieldError{Object: "content", Field: "content_type"}
	}

	*c = Content{Body: aux.Body, ContentType: *aux.ContentType, Length: aux.Length, Src: aux.Src}
	return nil
}
