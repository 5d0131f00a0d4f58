// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"encoding/xml"
	"net/url"
	"regexp"
	"strings"

	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

// ceNamespace is the Elsevier common DTD namespace used by full-text
// structural elements.
const ceNamespace = "http://www.elsevier.com/xml/common/dtd"

const xlinkNamespace = "http://www.w3.org/1999/xlink"

const cdnBase = "https://ars.els-cdn.com/content/image"

var (
	piiPattern = regexp.MustCompile(`(?i)<pii[^>]*>([^<]+)</pii>`)
	doiPattern = regexp.MustCompile(`(?i)<((?:\w+:)?doi)[^>]*>([^<]+)</(?:\w+:)?doi>`)
)

// mimeExtensions maps declared attachment MIME types to file extensions.
var mimeExtensions = map[string]string{
	"application/word":   "docx",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/pdf":              "pdf",
	"application/zip":              "zip",
	"application/x-zip-compressed": "zip",
	"application/vnd.ms-excel":     "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
	"application/vnd.ms-powerpoint":                                     "ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"text/plain": "txt",
	"text/csv":   "csv",
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// containsFullText reports whether the payload carries full-text structural
// markers: a body, section, or paragraph element in the Elsevier common
// namespace, or any table element. Invalid XML counts as no full text.
func containsFullText(payload []byte) bool {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Space == ceNamespace {
			switch start.Name.Local {
			case "body", "section", "para", "simple-para":
				return true
			}
		}
		if start.Name.Local == "table" {
			return true
		}
	}
}

// extractPII returns the PII embedded in the payload, or "".
func extractPII(payload []byte) string {
	match := piiPattern.FindSubmatch(payload)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(string(match[1]))
}

// extractDOI returns the first DOI element value in the payload, or "".
func extractDOI(payload []byte) string {
	match := doiPattern.FindSubmatch(payload)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(string(match[2]))
}

// extractAttachments collects supplementary attachment descriptors from
// object cross-references whose reference pattern or declared type implies a
// supplementary file. Malformed XML yields no attachments.
func extractAttachments(payload []byte) []types.Attachment {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	var attachments []types.Attachment
	for {
		tok, err := dec.Token()
		if err != nil {
			return attachments
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "object" {
			continue
		}

		attr := func(name string) string {
			for _, a := range start.Attr {
				if a.Name.Local == name && a.Name.Space != xlinkNamespace {
					return strings.TrimSpace(a.Value)
				}
			}
			return ""
		}
		href := ""
		for _, a := range start.Attr {
			if a.Name.Space == xlinkNamespace && a.Name.Local == "href" {
				href = strings.TrimSpace(a.Value)
			}
		}

		text := elementText(dec, start)

		ref := attr("ref")
		objType := strings.ToLower(attr("type"))
		category := strings.ToLower(attr("category"))
		if ref == "" || !supplementaryRef(ref, objType, category) {
			continue
		}

		rawURL := strings.TrimSpace(text)
		if rawURL == "" {
			rawURL = href
		}
		if rawURL == "" {
			continue
		}

		mimeType := strings.ToLower(attr("mimetype"))
		ext := inferExtension(rawURL, mimeType)
		attachments = append(attachments, types.Attachment{
			Ref:            ref,
			Type:           attr("type"),
			Category:       attr("category"),
			MimeType:       mimeType,
			MultimediaType: attr("multimediatype"),
			Size:           attr("size"),
			APIURL:         rawURL,
			CDNURL:         guessCDNURL(rawURL, ext),
			Extension:      ext,
		})
	}
}

// supplementaryRef applies the reference-pattern heuristics marking an object
// as supplementary material.
func supplementaryRef(ref, objType, category string) bool {
	lowered := strings.ToLower(ref)
	return strings.HasPrefix(lowered, "mm") ||
		strings.Contains(lowered, "supp") ||
		strings.Contains(objType, "supp") ||
		objType == "application" ||
		strings.Contains(category, "application")
}

// elementText consumes tokens up to the matching end element and returns the
// concatenated character data.
func elementText(dec *xml.Decoder, start xml.StartElement) string {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
	return sb.String()
}

// inferExtension maps the declared MIME type to a file extension, falling
// back to the extension already present in the URL path. Legacy "doc" files
// declared with the modern Word MIME type are upgraded to "docx".
func inferExtension(rawURL, mimeType string) string {
	ext := mimeExtensions[strings.ToLower(mimeType)]
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ext
	}
	filename := parsed.Path
	if idx := strings.LastIndex(filename, "/"); idx >= 0 {
		filename = filename[idx+1:]
	}
	if dot := strings.LastIndex(filename, "."); dot >= 0 {
		current := strings.ToLower(filename[dot+1:])
		if ext == "" {
			return current
		}
		if ext == "docx" && current == "doc" {
			return "docx"
		}
	}
	return ext
}

// guessCDNURL derives a content-delivery URL from an /eid/ API reference
// path, substituting the inferred extension. The result is best-effort and
// advisory only.
func guessCDNURL(apiURL, ext string) string {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	path := parsed.Path
	idx := strings.Index(path, "/eid/")
	if idx < 0 {
		return ""
	}
	filename := path[idx+len("/eid/"):]
	if ext != "" {
		if dot := strings.LastIndex(filename, "."); dot >= 0 {
			filename = filename[:dot] + "." + ext
		} else {
			filename += "." + ext
		}
	}
	return cdnBase + "/" + filename
}
