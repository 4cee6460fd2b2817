package index

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/st3fan/kickoff/pkg/core"
	"github.com/st3fan/kickoff/pkg/fetch"
	"github.com/st3fan/kickoff/pkg/registry"
)

// Client resolves releases against an index served over HTTP by Server
type Client struct {
	base string
	http *fetch.Client
}

// NewClient creates a client for the index at base, e.g.
// https://index.example.com
func NewClient(base string, httpClient *fetch.Client) *Client {
	if httpClient == nil {
		httpClient = fetch.NewClient()
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: httpClient,
	}
}

// Name returns the index base URL
func (c *Client) Name() string {
	return c.base
}

// Names lists every package the index serves
func (c *Client) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.http.GetJSON(ctx, c.base+"/api/v1/packages", &names); err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	return names, nil
}

// Entry fetches the full index entry of a package
func (c *Client) Entry(ctx context.Context, name string) (*registry.Entry, error) {
	var entry registry.Entry
	err := c.http.GetJSON(ctx, c.base+"/api/v1/packages/"+url.PathEscape(name), &entry)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: package %s not found in %s", core.ErrDependencyUnavailable, name, c.base)
		}
		return nil, err
	}
	return &entry, nil
}

// Lookup returns the release of name at exactly version
func (c *Client) Lookup(ctx context.Context, name, version string) (*core.Release, error) {
	pin := name + "==" + version

	var rel core.Release
	endpoint := c.base + "/api/v1/packages/" + url.PathEscape(name) + "/" + url.PathEscape(version)
	err := c.http.GetJSON(ctx, endpoint, &rel)
	if err != nil {
		if !isNotFound(err) {
			return nil, &core.Error{Op: "resolve", Package: pin, Err: err}
		}

		// tell a missing package apart from a missing version
		entry, entryErr := c.Entry(ctx, name)
		if entryErr != nil {
			return nil, &core.Error{Op: "resolve", Package: pin, Err: entryErr}
		}
		return nil, &core.Error{
			Op:      "resolve",
			Package: pin,
			Err: fmt.Errorf("%w: no release %s of %s (available: %s)",
				core.ErrDependencyUnavailable, version, entry.Name, strings.Join(entry.Versions(), ", ")),
		}
	}

	if rel.Name == "" {
		rel.Name = name
	}
	for i := range rel.Artifacts {
		rel.Artifacts[i].URL = c.resolveArtifactURL(rel.Name, rel.Artifacts[i].URL)
	}

	return &rel, nil
}

func (c *Client) resolveArtifactURL(name, raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.IsAbs() {
		return raw
	}
	base, err := url.Parse(c.base + "/files/" + url.PathEscape(name) + "/")
	if err != nil || u == nil {
		return raw
	}
	return base.ResolveReference(u).String()
}

func isNotFound(err error) bool {
	var statusErr *fetch.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
