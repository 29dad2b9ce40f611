package message

import (
	"fmt"
	"strings"
)

// StorageType says where a payload's raw bytes live.
type StorageType int

const (
	// StorageInline means the bytes are carried in Payload.Content.
	StorageInline StorageType = iota
	// StorageFile means the bytes live at Payload.URL.
	StorageFile
)

// Format is the wire format of a payload.
type Format int

const (
	// FormatXML is an XML document.
	FormatXML Format = iota
	// FormatJSON is a JSON document.
	FormatJSON
)

// Schema names the message standard a payload conforms to.
type Schema int

const (
	// SchemaISO20022 is an ISO 20022 business message (pacs, pain, camt, ...).
	SchemaISO20022 Schema = iota
	// SchemaGeneric is any well-formed document; no standard is enforced.
	SchemaGeneric
)

// Encoding is the character encoding of a payload's bytes.
type Encoding int

const (
	// EncodingUTF8 is UTF-8.
	EncodingUTF8 Encoding = iota
	// EncodingUTF16 is UTF-16, byte order taken from the BOM (big endian without one).
	EncodingUTF16
	// EncodingUTF32 is UTF-32, byte order taken from the BOM (big endian without one).
	EncodingUTF32
	// EncodingASCII is 7-bit US-ASCII.
	EncodingASCII
	// EncodingLatin1 is ISO-8859-1.
	EncodingLatin1
)

// tagTable is the explicit mapping between an enum and its wire tags.
type tagTable[T comparable] struct {
	kind    string
	toTag   map[T]string
	fromTag map[string]T
	fold    func(string) string
}

func newTagTable[T comparable](kind string, fold func(string) string, pairs map[T]string) tagTable[T] {
	from := make(map[string]T, len(pairs))
	for v, tag := range pairs {
		from[fold(tag)] = v
	}
	return tagTable[T]{kind: kind, toTag: pairs, fromTag: from, fold: fold}
}

// withAlias accepts an extra tag on decode without changing what is emitted.
func (t tagTable[T]) withAlias(tag string, v T) tagTable[T] {
	t.fromTag[t.fold(tag)] = v
	return t
}

func (t tagTable[T]) marshal(v T) ([]byte, error) {
	tag, ok := t.toTag[v]
	if !ok {
		return nil, fmt.Errorf("message: invalid %s value %v", t.kind, v)
	}
	return []byte(tag), nil
}

func (t tagTable[T]) unmarshal(text []byte) (T, error) {
	v, ok := t.fromTag[t.fold(string(text))]
	if !ok {
		var zero T
		return zero, fmt.Errorf("message: unknown %s tag %q", t.kind, string(text))
	}
	return v, nil
}

func (t tagTable[T]) name(v T) string {
	if tag, ok := t.toTag[v]; ok {
		return tag
	}
	return "unknown"
}

var (
	storageTags = newTagTable("storage type", strings.ToLower, map[StorageType]string{
		StorageInline: "inline",
		StorageFile:   "file",
	})
	formatTags = newTagTable("format", strings.ToLower, map[Format]string{
		FormatXML:  "xml",
		FormatJSON: "json",
	})
	schemaTags = newTagTable("schema", strings.ToLower, map[Schema]string{
		SchemaISO20022: "iso20022",
		SchemaGeneric:  "generic",
	})
	encodingTags = newTagTable("encoding", strings.ToUpper, map[Encoding]string{
		EncodingUTF8:   "UTF-8",
		EncodingUTF16:  "UTF-16",
		EncodingUTF32:  "UTF-32",
		EncodingASCII:  "ASCII",
		EncodingLatin1: "ISO-8859-1",
	})
)

func (s StorageType) String() string                { return storageTags.name(s) }
func (s StorageType) MarshalText() ([]byte, error)  { return storageTags.marshal(s) }
func (s *StorageType) UnmarshalText(b []byte) error { return unmarshalInto(storageTags, b, s) }

func (f Format) String() string                { return formatTags.name(f) }
func (f Format) MarshalText() ([]byte, error)  { return formatTags.marshal(f) }
func (f *Format) UnmarshalText(b []byte) error { return unmarshalInto(formatTags, b, f) }

func (s Schema) String() string                { return schemaTags.name(s) }
func (s Schema) MarshalText() ([]byte, error)  { return schemaTags.marshal(s) }
func (s *Schema) UnmarshalText(b []byte) error { return unmarshalInto(schemaTags, b, s) }

func (e Encoding) String() string                { return encodingTags.name(e) }
func (e Encoding) MarshalText() ([]byte, error)  { return encodingTags.marshal(e) }
func (e *Encoding) UnmarshalText(b []byte) error { return unmarshalInto(encodingTags, b, e) }

func unmarshalInto[T comparable](t tagTable[T], text []byte, dst *T) error {
	v, err := t.unmarshal(text)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// ParseFormat maps a wire tag onto a Format.
func ParseFormat(s string) (Format, error) { return formatTags.unmarshal([]byte(s)) }

// ParseSchema maps a wire tag onto a Schema.
func ParseSchema(s string) (Schema, error) { return schemaTags.unmarshal([]byte(s)) }

// ParseEncoding maps a wire tag onto an Encoding.
func ParseEncoding(s string) (Encoding, error) { return encodingTags.unmarshal([]byte(s)) }

// Payload describes where a message's raw content lives and how to read it.
//
// Exactly one of Content and URL is meaningful for the declared Type, but the
// struct does not enforce it. Readers use Content when it is non-empty and fall
// back to URL otherwise, whatever Type says; a payload whose populated field
// contradicts Type is a caller error and the outcome of parsing it is
// unspecified. Use Consistent to reject such payloads up front.
type Payload struct {
	Type     StorageType `json:"type"`
	Content  []byte      `json:"content,omitempty"`
	URL      string      `json:"url,omitempty"`
	Format   Format      `json:"format"`
	Schema   Schema      `json:"schema"`
	Encoding Encoding    `json:"encoding"`
	// Size is the advisory byte length. It is never checked against the content.
	Size int64 `json:"size"`
}

// DefaultPayload returns the payload defaults: inline, XML, ISO 20022, UTF-8,
// no content, size 0.
func DefaultPayload() Payload {
	return Payload{
		Type:     StorageInline,
		Format:   FormatXML,
		Schema:   SchemaISO20022,
		Encoding: EncodingUTF8,
	}
}

// NewInline creates an inline payload carrying content. Size is left at 0.
func NewInline(content []byte, format Format, schema Schema, encoding Encoding) Payload {
	return Payload{
		Type:     StorageInline,
		Content:  content,
		Format:   format,
		Schema:   schema,
		Encoding: encoding,
	}
}

// NewFile creates a payload referring to external content at url.
func NewFile(url string, format Format, schema Schema, encoding Encoding, size int64) Payload {
	return Payload{
		Type:     StorageFile,
		URL:      url,
		Format:   format,
		Schema:   schema,
		Encoding: encoding,
		Size:     size,
	}
}

// HasSource reports whether the payload carries content or a URL.
func (p Payload) HasSource() bool {
	return len(p.Content) > 0 || p.URL != ""
}

// Consistent reports whether exactly the field matching Type is populated.
func (p Payload) Consistent() bool {
	switch p.Type {
	case StorageInline:
		return p.URL == ""
	case StorageFile:
		return len(p.Content) == 0 && p.URL != ""
	default:
		return false
	}
}
