// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the shared data model for article retrieval and
// coordinate extraction.
package types

import (
	"maps"
	"time"
)

// Metadata keys populated by the download stage.
const (
	MetaTransport       = "transport"
	MetaStatusCode      = "status_code"
	MetaView            = "view"
	MetaViewRequested   = "view_requested"
	MetaViewObtained    = "view_obtained"
	MetaIdentifier      = "identifier"
	MetaIdentifierType  = "identifier_type"
	MetaIdentifierInput = "identifier_lookup"
	MetaFullText        = "full_text_retrieved"
	MetaPII             = "pii"
	MetaDOI             = "doi"
	MetaSupplementary   = "supplementary_attachments"
)

// ArticleDocument is a raw article payload retrieved from the content API,
// together with retrieval provenance.
//
// Metadata is treated as immutable once a document has been returned to a
// caller: updates go through WithMetadata, which produces a copy sharing the
// same payload.
type ArticleDocument struct {
	// DOI is the primary identifier of the article.
	DOI string

	// Payload is the raw response body.
	Payload []byte

	// ContentType is the Content-Type the server declared.
	ContentType string

	// Format tags the payload format (currently always "xml").
	Format string

	// RetrievedAt is when the payload was obtained.
	RetrievedAt time.Time

	// Metadata carries retrieval provenance: transport scheme, HTTP status,
	// requested/obtained view, rate-limit snapshot, extracted secondary
	// identifiers, and supplementary attachment descriptors.
	Metadata map[string]any
}

// Size returns the payload size in bytes.
func (a *ArticleDocument) Size() int {
	return len(a.Payload)
}

// WithMetadata returns a copy of the document with the given metadata values
// merged in. The payload is shared, not copied.
func (a *ArticleDocument) WithMetadata(updates map[string]any) *ArticleDocument {
	merged := make(map[string]any, len(a.Metadata)+len(updates))
	maps.Copy(merged, a.Metadata)
	maps.Copy(merged, updates)
	doc := *a
	doc.Metadata = merged
	return &doc
}

// NewArticleDocument constructs an ArticleDocument with the retrieval
// timestamp defaulted to now.
func NewArticleDocument(doi string, payload []byte, contentType, format string, metadata map[string]any) *ArticleDocument {
	meta := make(map[string]any, len(metadata))
	maps.Copy(meta, metadata)
	return &ArticleDocument{
		DOI:         doi,
		Payload:     payload,
		ContentType: contentType,
		Format:      format,
		RetrievedAt: time.Now().UTC(),
		Metadata:    meta,
	}
}

// Attachment describes a supplementary file referenced by an article.
// The CDN URL is a best-effort guess derived from the reference path and the
// inferred file extension; it is advisory metadata, not a download guarantee.
type Attachment struct {
	Ref            string `json:"ref" yaml:"ref"`
	Type           string `json:"type,omitempty" yaml:"type,omitempty"`
	Category       string `json:"category,omitempty" yaml:"category,omitempty"`
	MimeType       string `json:"mimetype,omitempty" yaml:"mimetype,omitempty"`
	MultimediaType string `json:"multimediatype,omitempty" yaml:"multimediatype,omitempty"`
	Size           string `json:"size,omitempty" yaml:"size,omitempty"`
	APIURL         string `json:"api_url" yaml:"api_url"`
	CDNURL         string `json:"cdn_url,omitempty" yaml:"cdn_url,omitempty"`
	Extension      string `json:"extension,omitempty" yaml:"extension,omitempty"`
}
