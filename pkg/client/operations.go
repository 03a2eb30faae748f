package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/api"
	"github.com/Combine-Capital/kvcache/pkg/cache"
	"github.com/Combine-Capital/kvcache/pkg/errors"
)

func keyPath(key string) string {
	return "/v1/keys/" + url.PathEscape(key)
}

func hashPath(key string, field ...string) string {
	p := "/v1/hashes/" + url.PathEscape(key)
	for _, f := range field {
		p += "/" + url.PathEscape(f)
	}
	return p
}

// Get returns the value under key; found is false when the server answers 404.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := c.do(ctx, http.MethodGet, keyPath(key), nil)
	if err != nil {
		return nil, false, err
	}
	if res.status == http.StatusNotFound {
		return nil, false, nil
	}
	if err := res.err(); err != nil {
		return nil, false, err
	}
	return res.body, true, nil
}

// Set stores value under key. Options behave as for cache.Service.Set; a TTL
// left unset defers to the server's configured default.
func (c *Client) Set(ctx context.Context, key string, value []byte, opts ...cache.SetOption) error {
	o := cache.SetOptions{TTL: -1}
	for _, opt := range opts {
		opt(&o)
	}

	query := url.Values{}
	if o.TTL >= 0 {
		query.Set("ttl", o.TTL.String())
	}
	if o.KeepTTL {
		query.Set("keepttl", "true")
	}
	if mode := o.Mode.String(); mode != "" {
		query.Set("mode", strings.ToLower(mode))
	}

	path := keyPath(key)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	res, err := c.do(ctx, http.MethodPut, path, &requestBody{raw: value})
	if err != nil {
		return err
	}
	return res.err()
}

// Delete removes key. Deleting an absent key fails with a cache_delete signal.
func (c *Client) Delete(ctx context.Context, key string) error {
	res, err := c.do(ctx, http.MethodDelete, keyPath(key), nil)
	if err != nil {
		return err
	}
	return res.err()
}

// PExpire sets key's time to live with millisecond precision.
func (c *Client) PExpire(ctx context.Context, key string, ttl time.Duration) error {
	res, err := c.do(ctx, http.MethodPost, keyPath(key)+"/expire",
		&requestBody{json: api.ExpireRequest{TTLMs: ttl.Milliseconds()}})
	if err != nil {
		return err
	}
	return res.err()
}

// SetMulti appends every pair to its list in one server-side transaction.
// An empty batch is not sent.
func (c *Client) SetMulti(ctx context.Context, pairs []cache.KeyValue) error {
	if len(pairs) == 0 {
		return nil
	}
	res, err := c.do(ctx, http.MethodPost, "/v1/batch", &requestBody{json: api.BatchRequest{Items: pairs}})
	if err != nil {
		return err
	}
	return res.err()
}

// HGet returns one field of the hash at key.
func (c *Client) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	res, err := c.do(ctx, http.MethodGet, hashPath(key, field), nil)
	if err != nil {
		return nil, false, err
	}
	if res.status == http.StatusNotFound {
		return nil, false, nil
	}
	if err := res.err(); err != nil {
		return nil, false, err
	}
	return res.body, true, nil
}

// HSet sets one field of the hash at key and returns the number of fields
// created.
func (c *Client) HSet(ctx context.Context, key, field string, value []byte) (int64, error) {
	res, err := c.do(ctx, http.MethodPut, hashPath(key, field), &requestBody{raw: value})
	if err != nil {
		return 0, err
	}
	if err := res.err(); err != nil {
		return 0, err
	}

	var out api.HSetResponse
	if err := res.decode(&out); err != nil {
		return 0, err
	}
	return out.Created, nil
}

// HGetAll returns every field of the hash at key.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	res, err := c.do(ctx, http.MethodGet, hashPath(key), nil)
	if err != nil {
		return nil, err
	}
	if err := res.err(); err != nil {
		return nil, err
	}

	var out api.HashResponse
	if err := res.decode(&out); err != nil {
		return nil, err
	}
	if out.Fields == nil {
		out.Fields = map[string][]byte{}
	}
	return out.Fields, nil
}

// CheckHealth asks the server's readiness endpoint.
func (c *Client) CheckHealth(ctx context.Context) error {
	res, err := c.do(ctx, http.MethodGet, "/health/ready", nil)
	if err != nil {
		return err
	}
	if res.status != http.StatusOK {
		return errors.NewTemporary("kvcache not ready: HTTP "+strconv.Itoa(res.status), nil)
	}
	return nil
}
