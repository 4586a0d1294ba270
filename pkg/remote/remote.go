// Package remote fetches raw object bytes over file://, http:// and
// https:// for prefetching commit/tree/file objects without driving a
// full pull through the Object Store Adapter.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/abhijitnavale/flatpak/pkg/logging"
	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

var log = logging.GetLogger("remote")

const (
	userAgent      = "flatpak-installer/1.0"
	requestTimeout = 60 * time.Second
)

// Fetcher loads bytes from a URI, lazily constructing and reusing one
// HTTP client configured with the system CA pool, timeouts, user-agent
// and optional proxy.
type Fetcher struct {
	once   sync.Once
	client *http.Client
}

// LoadURI dispatches on uri's scheme: file loads contents directly;
// http/https perform a GET; any other scheme is *unsupported*.
func (f *Fetcher) LoadURI(ctx context.Context, uri string) ([]byte, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.ParseError, "invalid URI %s", uri)
	}

	switch parsed.Scheme {
	case "file":
		return f.loadFile(parsed.Path)
	case "http", "https":
		return f.loadHTTP(ctx, uri)
	default:
		return nil, storeerr.Newf(storeerr.Unsupported, "unsupported URI scheme %q", parsed.Scheme)
	}
}

func (f *Fetcher) loadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, storeerr.Newf(storeerr.NotFound, "file %s not found", path)
	}
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to read file %s", path)
	}
	return data, nil
}

func (f *Fetcher) httpClient() *http.Client {
	f.once.Do(func() {
		transport := &http.Transport{
			Proxy: f.proxyFunc,
		}
		f.client = &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		}
	})
	return f.client
}

func (f *Fetcher) proxyFunc(req *http.Request) (*url.URL, error) {
	raw := os.Getenv("http_proxy")
	if raw == "" {
		return nil, nil
	}
	proxyURL, err := url.Parse(raw)
	if err != nil {
		log.Warn().Err(err).Str("http_proxy", raw).Msg("ignoring invalid http_proxy value")
		return nil, nil
	}
	return proxyURL, nil
}

func (f *Fetcher) loadHTTP(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to build request for %s", uri)
	}
	req.Header.Set("User-Agent", userAgent)

	debugHTTP := os.Getenv("OSTREE_DEBUG_HTTP") != ""
	if debugHTTP {
		log.Debug().Str("uri", uri).Msg("fetching object")
	}

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to fetch %s", uri)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, storeerr.Wrapf(err, storeerr.IOError, "failed to read response body from %s", uri)
	}

	if debugHTTP {
		log.Debug().Str("uri", uri).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("fetch complete")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, storeerr.Newf(storeerr.NotFound, "%s not found (status %d)", uri, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, storeerr.Newf(storeerr.IOError, "%s returned %s", uri, resp.Status)
	}

	return body, nil
}

// FetchRemoteObject derives {remote-base-url}/objects/{checksum[0:2]}/{checksum[2:]}.{type}
// and fetches it. typ is one of "commit", "dirtree", "filez".
func (f *Fetcher) FetchRemoteObject(ctx context.Context, remoteBaseURL, checksum, typ string) ([]byte, error) {
	if len(checksum) < 3 {
		return nil, storeerr.Newf(storeerr.ParseError, "checksum %q too short", checksum)
	}

	objectURL := strings.TrimSuffix(remoteBaseURL, "/") +
		fmt.Sprintf("/objects/%s/%s.%s", checksum[:2], checksum[2:], typ)

	data, err := f.LoadURI(ctx, objectURL)
	if err != nil {
		return nil, storeerr.Prefix(err, fmt.Sprintf("fetching %s object %s", typ, checksum))
	}
	return data, nil
}
