package yggdrasil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	OpQueryUUIDs   = "query_uuids"
	OpQueryProfile = "query_profile"
	OpHasJoined    = "has_joined"
)

type Emitter interface {
	Emit(name string, args ...interface{})
}

type ClientOption func(c *Client)

// WithBulkBatchSize limits the number of names sent to a provider in a single bulk request.
// Zero disables the limit.
func WithBulkBatchSize(size int) ClientOption {
	return func(c *Client) {
		c.batchSize = size
	}
}

// Client resolves identities against the ordered list of providers.
// The first provider, which answers successfully, wins. Failures of the
// particular providers are never returned to the caller: they are emitted
// as events and the next provider is queried instead.
type Client struct {
	transport Transport
	emitter   Emitter
	providers []Provider
	batchSize int
}

func NewClient(transport Transport, emitter Emitter, providers []Provider, opts ...ClientOption) (*Client, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	c := &Client{
		transport: transport,
		emitter:   emitter,
		providers: append([]Provider(nil), providers...),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}

// QueryUUIDs resolves names into ids. Names, which weren't found by any provider,
// are simply missing from the result. Keys of the result are spelled as the provider returned them.
func (c *Client) QueryUUIDs(ctx context.Context, names []string) map[string]uuid.UUID {
	lookup := newUuidsLookup(names)
	subject := strings.Join(lookup.remaining(), ", ")
	for _, provider := range c.providers {
		if len(lookup.pending) == 0 || ctx.Err() != nil {
			break
		}

		for _, chunk := range chunkNames(lookup.remaining(), c.batchSize) {
			c.queryUUIDsChunk(ctx, provider, chunk, lookup)
		}
	}

	c.emitter.Emit("yggdrasil:result", OpQueryUUIDs, subject, len(lookup.result) > 0)

	return lookup.result
}

func (c *Client) QueryUUID(ctx context.Context, name string) (uuid.UUID, bool) {
	for resolvedName, id := range c.QueryUUIDs(ctx, []string{name}) {
		if strings.EqualFold(resolvedName, name) {
			return id, true
		}
	}

	return uuid.Nil, false
}

// QueryProfile returns nil when none of the providers has the profile or all of them are unavailable
func (c *Client) QueryProfile(ctx context.Context, id uuid.UUID, withSignature bool) *Profile {
	return c.firstProfile(ctx, OpQueryProfile, id.String(), func(provider Provider) string {
		target := provider.ProfileTarget(id)
		if withSignature {
			target += "?unsigned=false"
		}

		return target
	})
}

// HasJoined returns nil when the join can't be verified, regardless of the reason
func (c *Client) HasJoined(ctx context.Context, username string, serverId string) *Profile {
	return c.firstProfile(ctx, OpHasJoined, username+" "+serverId, func(provider Provider) string {
		return provider.JoinCheckTarget(username, serverId)
	})
}

func (c *Client) queryUUIDsChunk(ctx context.Context, provider Provider, chunk []string, lookup *uuidsLookup) {
	subject := strings.Join(chunk, ", ")
	c.emitter.Emit("yggdrasil:before_call", OpQueryUUIDs, provider.String(), subject)
	requestBody, err := json.Marshal(chunk)
	if err != nil {
		c.emitter.Emit("yggdrasil:after_call", OpQueryUUIDs, provider.String(), subject, false, err)
		return
	}

	response, err := c.transport.Call(ctx, http.MethodPost, provider.BulkLookupTarget(), requestBody, "application/json")
	if err != nil {
		c.emitter.Emit("yggdrasil:after_call", OpQueryUUIDs, provider.String(), subject, false, err)
		return
	}

	if isEmptyBody(response) {
		c.emitter.Emit("yggdrasil:after_call", OpQueryUUIDs, provider.String(), subject, false, nil)
		return
	}

	records, recordErrors, err := parseBulkResponse(response)
	if err != nil {
		c.emitter.Emit("yggdrasil:after_call", OpQueryUUIDs, provider.String(), subject, false, err)
		return
	}

	for _, recordErr := range recordErrors {
		c.emitter.Emit("yggdrasil:malformed_record", OpQueryUUIDs, provider.String(), recordErr)
	}

	found := false
	for _, record := range records {
		if lookup.resolve(record.Name, record.Id) {
			found = true
		}
	}

	c.emitter.Emit("yggdrasil:after_call", OpQueryUUIDs, provider.String(), subject, found, nil)
}

func (c *Client) firstProfile(ctx context.Context, op string, subject string, target func(provider Provider) string) *Profile {
	for _, provider := range c.providers {
		if ctx.Err() != nil {
			break
		}

		c.emitter.Emit("yggdrasil:before_call", op, provider.String(), subject)
		response, err := c.transport.Call(ctx, http.MethodGet, target(provider), nil, "")
		if err != nil {
			c.emitter.Emit("yggdrasil:after_call", op, provider.String(), subject, false, err)
			continue
		}

		if isEmptyBody(response) {
			c.emitter.Emit("yggdrasil:after_call", op, provider.String(), subject, false, nil)
			continue
		}

		profile, err := ParseProfile(response)
		if err != nil {
			c.emitter.Emit("yggdrasil:after_call", op, provider.String(), subject, false, err)
			continue
		}

		c.emitter.Emit("yggdrasil:after_call", op, provider.String(), subject, true, nil)
		c.emitter.Emit("yggdrasil:result", op, subject, true)

		return profile
	}

	c.emitter.Emit("yggdrasil:result", op, subject, false)

	return nil
}

// uuidsLookup is the working state of a single QueryUUIDs call
type uuidsLookup struct {
	// Lowercased names in the order they were requested
	order []string
	// Lowercased name => name as it was requested
	pending map[string]string
	result  map[string]uuid.UUID
}

func newUuidsLookup(names []string) *uuidsLookup {
	lookup := &uuidsLookup{
		pending: make(map[string]string, len(names)),
		result:  make(map[string]uuid.UUID, len(names)),
	}
	for _, name := range names {
		key := strings.ToLower(name)
		if _, exists := lookup.pending[key]; exists {
			continue
		}

		lookup.order = append(lookup.order, key)
		lookup.pending[key] = name
	}

	return lookup
}

func (l *uuidsLookup) remaining() []string {
	names := make([]string, 0, len(l.pending))
	for _, key := range l.order {
		if name, ok := l.pending[key]; ok {
			names = append(names, name)
		}
	}

	return names
}

// resolve returns false if the name wasn't requested or was already resolved by an earlier answer
func (l *uuidsLookup) resolve(name string, id uuid.UUID) bool {
	key := strings.ToLower(name)
	if _, ok := l.pending[key]; !ok {
		return false
	}

	l.result[name] = id
	delete(l.pending, key)

	return true
}

func chunkNames(names []string, size int) [][]string {
	if len(names) == 0 {
		return nil
	}

	if size <= 0 || len(names) <= size {
		return [][]string{names}
	}

	chunks := make([][]string, 0, (len(names)+size-1)/size)
	for size < len(names) {
		names, chunks = names[size:], append(chunks, names[0:size:size])
	}

	return append(chunks, names)
}

func isEmptyBody(body []byte) bool {
	return len(bytes.TrimSpace(body)) == 0
}
