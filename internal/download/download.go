// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download retrieves articles from the content API by identifier,
// with dual-identifier fallback, cache short-circuiting, and full-text view
// validation.
package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/cache"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/client"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

// DefaultCacheNamespace groups cached article payloads.
const DefaultCacheNamespace = "articles"

// ErrNoIdentifier is returned for records that carry neither a DOI nor a
// PubMed ID.
var ErrNoIdentifier = errors.New("record must provide at least a doi or pmid")

// Record names an article by DOI and/or PubMed ID.
type Record struct {
	DOI  string `json:"doi,omitempty" yaml:"doi,omitempty"`
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
}

// Normalize returns the record with identifiers trimmed.
func (r Record) Normalize() Record {
	return Record{DOI: strings.TrimSpace(r.DOI), PMID: strings.TrimSpace(r.PMID)}
}

// Empty reports whether the record carries no usable identifier.
func (r Record) Empty() bool {
	return r.DOI == "" && r.PMID == ""
}

// Lookup returns the record as provenance metadata, omitting empty fields.
func (r Record) Lookup() map[string]string {
	lookup := make(map[string]string, 2)
	if r.DOI != "" {
		lookup["doi"] = r.DOI
	}
	if r.PMID != "" {
		lookup["pmid"] = r.PMID
	}
	return lookup
}

func (r Record) String() string {
	if r.DOI != "" {
		return "doi:" + r.DOI
	}
	if r.PMID != "" {
		return "pmid:" + r.PMID
	}
	return "(empty record)"
}

// ViewError reports that a fresh FULL-view request returned a metadata-only
// payload. Cached payloads never produce this error; the discrepancy is
// recorded in metadata instead.
type ViewError struct {
	Identifier     string
	IdentifierType string
	StatusCode     int
}

func (e *ViewError) Error() string {
	return fmt.Sprintf(
		"metadata-only payload returned for %s:%s when FULL view was requested; confirm your entitlements allow full-text retrieval",
		e.IdentifierType, e.Identifier)
}

// Outcome is the per-record result delivered to the progress observer.
// Article is nil when the record resolved to no document; Err is nil on
// success and on a definitive not-found.
type Outcome struct {
	Record  Record
	Article *types.ArticleDocument
	Err     error
}

// Observer consumes per-record outcomes as records finish processing.
type Observer interface {
	Observe(Outcome)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Outcome)

// Observe calls f(o).
func (f ObserverFunc) Observe(o Outcome) { f(o) }

// Getter issues API GET requests. *client.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, path string, params url.Values, accept string) (*client.Result, error)
}

// Options configures a download batch.
type Options struct {
	// Cache short-circuits repeated downloads when set.
	Cache cache.Cache

	// CacheNamespace defaults to "articles".
	CacheNamespace string

	// Observer receives one outcome per record, in input order.
	Observer Observer

	// FailFast aborts the batch on the first record failure instead of
	// continuing through the list.
	FailFast bool
}

// Articles downloads the articles named by records, in order. Records that
// fail do not stop the batch unless FailFast is set; a definitive not-found
// on every identifier resolves to "no document" rather than an error.
// Outcomes are fanned out over a channel consumed by an observer goroutine,
// so a slow observer never blocks retrieval of the next record.
func Articles(ctx context.Context, g Getter, records []Record, opts Options) ([]*types.ArticleDocument, error) {
	if len(records) == 0 {
		return nil, nil
	}
	namespace := opts.CacheNamespace
	if namespace == "" {
		namespace = DefaultCacheNamespace
	}

	outcomes := make(chan Outcome, len(records))
	observerDone := make(chan struct{})
	go func() {
		defer close(observerDone)
		for o := range outcomes {
			if opts.Observer != nil {
				opts.Observer.Observe(o)
			}
		}
	}()

	var articles []*types.ArticleDocument
	var failErr error
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			failErr = err
			break
		}
		record = record.Normalize()
		article, err := downloadRecord(ctx, g, record, opts.Cache, namespace)
		outcomes <- Outcome{Record: record, Article: article, Err: err}
		if err != nil {
			if opts.FailFast {
				failErr = fmt.Errorf("downloading %s: %w", record, err)
				break
			}
			continue
		}
		if article != nil {
			articles = append(articles, article)
		}
	}
	close(outcomes)
	<-observerDone
	return articles, failErr
}

// downloadRecord tries each identifier of the record in preference order:
// DOI first, then PMID when distinct. A 404 advances to the next identifier;
// any other error aborts the record.
func downloadRecord(ctx context.Context, g Getter, record Record, c cache.Cache, namespace string) (*types.ArticleDocument, error) {
	type attempt struct {
		idType string
		value  string
	}
	var attempts []attempt
	if record.DOI != "" {
		attempts = append(attempts, attempt{"doi", record.DOI})
	}
	if record.PMID != "" && record.PMID != record.DOI {
		attempts = append(attempts, attempt{"pmid", record.PMID})
	}
	if len(attempts) == 0 {
		return nil, ErrNoIdentifier
	}

	var lastNotFound *client.StatusError
	for _, a := range attempts {
		article, err := downloadIdentifier(ctx, g, a.value, a.idType, c, namespace)
		if err != nil {
			var statusErr *client.StatusError
			if errors.As(err, &statusErr) && statusErr.NotFound() {
				lastNotFound = statusErr
				continue
			}
			return nil, err
		}
		return article.WithMetadata(map[string]any{
			types.MetaIdentifierInput: record.Lookup(),
		}), nil
	}

	if lastNotFound != nil {
		// Every identifier came back not-found: no document, not an error.
		return nil, nil
	}
	return nil, nil
}

// downloadIdentifier retrieves one identifier, serving from cache when
// possible and validating that the FULL view was honored on fresh fetches.
func downloadIdentifier(ctx context.Context, g Getter, identifier, identifierType string, c cache.Cache, namespace string) (*types.ArticleDocument, error) {
	cacheKey := identifierType + ":" + identifier

	var payload []byte
	var fromCache bool
	metadata := map[string]any{}
	contentType := "application/xml"

	if c != nil {
		cached, ok, err := c.Get(namespace, cacheKey)
		if err != nil {
			return nil, fmt.Errorf("reading cache for %s: %w", cacheKey, err)
		}
		if ok {
			payload = cached
			fromCache = true
			metadata[types.MetaTransport] = "cache"
		}
	}

	var freshStatus int
	if payload == nil {
		path, err := endpointPath(identifier, identifierType)
		if err != nil {
			return nil, err
		}
		params := url.Values{"httpAccept": {"text/xml"}, "view": {"FULL"}}
		res, err := g.Get(ctx, path, params, "application/xml")
		if err != nil {
			var statusErr *client.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest && invalidViewRejection(statusErr) {
				return nil, fmt.Errorf(
					"content API rejected FULL view for %s:%s; ensure your credentials grant full-text access: %w",
					identifierType, identifier, err)
			}
			return nil, err
		}

		payload = res.Body
		freshStatus = res.StatusCode
		if res.ContentType != "" {
			contentType = res.ContentType
		}
		metadata[types.MetaTransport] = res.Scheme
		metadata[types.MetaStatusCode] = res.StatusCode
		metadata[types.MetaIdentifier] = identifier
		metadata[types.MetaIdentifierType] = identifierType
		for k, v := range res.Snapshot.Metadata() {
			metadata[k] = v
		}

		if c != nil {
			if err := c.Set(namespace, cacheKey, payload); err != nil {
				return nil, fmt.Errorf("caching %s: %w", cacheKey, err)
			}
		}
	}

	fullText := containsFullText(payload)
	if !fullText && !fromCache {
		// The view requirement is enforced only against fresh retrieval.
		return nil, &ViewError{Identifier: identifier, IdentifierType: identifierType, StatusCode: freshStatus}
	}
	obtained := "FULL"
	if !fullText {
		obtained = "STANDARD"
		metadata["view_mismatch"] = true
	}
	metadata[types.MetaViewRequested] = "FULL"
	metadata[types.MetaViewObtained] = obtained
	metadata[types.MetaView] = obtained
	metadata[types.MetaFullText] = fullText

	if pii := extractPII(payload); pii != "" {
		metadata[types.MetaPII] = pii
	}
	extractedDOI := extractDOI(payload)
	if extractedDOI != "" {
		if _, present := metadata[types.MetaDOI]; !present {
			metadata[types.MetaDOI] = extractedDOI
		}
	}
	if attachments := extractAttachments(payload); len(attachments) > 0 {
		metadata[types.MetaSupplementary] = attachments
	}

	doi := identifier
	if identifierType != "doi" {
		if extractedDOI != "" {
			doi = extractedDOI
		}
	}
	return types.NewArticleDocument(doi, payload, contentType, "xml", metadata), nil
}

func endpointPath(identifier, identifierType string) (string, error) {
	switch identifierType {
	case "doi":
		return "/article/doi/" + identifier, nil
	case "pmid":
		return "/article/pubmed_id/" + identifier, nil
	}
	return "", fmt.Errorf("unsupported identifier type: %s", identifierType)
}

// invalidViewRejection detects server errors indicating the requested view
// is unsupported for the caller's entitlements.
func invalidViewRejection(e *client.StatusError) bool {
	status := strings.ToLower(e.Header.Get("X-ELS-Status"))
	if strings.Contains(status, "view") && strings.Contains(status, "invalid") {
		return true
	}
	body := strings.ToLower(string(e.Body))
	return strings.Contains(body, "view") && strings.Contains(body, "not valid")
}
