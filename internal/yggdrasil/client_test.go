package yggdrasil

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var (
	aliceId = uuid.MustParse("a11ce000-0000-4000-8000-000000000001")
	bobId   = uuid.MustParse("b0b00000-0000-4000-8000-000000000002")
)

type TransportMock struct {
	mock.Mock
}

func (m *TransportMock) Call(ctx context.Context, method string, target string, body []byte, contentType string) ([]byte, error) {
	args := m.Called(ctx, method, target, string(body), contentType)
	var result []byte
	if casted, ok := args.Get(0).(string); ok {
		result = []byte(casted)
	}

	return result, args.Error(1)
}

type emittedEvent struct {
	Name string
	Args []interface{}
}

type EmitterMock struct {
	mu     sync.Mutex
	events []*emittedEvent
}

func (e *EmitterMock) Emit(name string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events = append(e.events, &emittedEvent{Name: name, Args: args})
}

func (e *EmitterMock) Events(name string) [][]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result [][]interface{}
	for _, event := range e.events {
		if event.Name == name {
			result = append(result, event.Args)
		}
	}

	return result
}

type ClientSuite struct {
	suite.Suite

	Transport *TransportMock
	Emitter   *EmitterMock

	ProviderA *RootProvider
	ProviderB *RootProvider
	Client    *Client
}

func (s *ClientSuite) SetupTest() {
	s.Transport = &TransportMock{}
	s.Emitter = &EmitterMock{}
	s.ProviderA = NewRootProvider("https://a.example.com/")
	s.ProviderB = NewRootProvider("https://b.example.com/")
	s.Client, _ = NewClient(s.Transport, s.Emitter, []Provider{s.ProviderA, s.ProviderB})
}

func (s *ClientSuite) TearDownTest() {
	s.Transport.AssertExpectations(s.T())
}

func (s *ClientSuite) expectBulk(provider Provider, names string, response string, err error) {
	s.Transport.On("Call", mock.Anything, http.MethodPost, provider.BulkLookupTarget(), names, "application/json").Once().Return(response, err)
}

func (s *ClientSuite) expectGet(target string, response string, err error) {
	s.Transport.On("Call", mock.Anything, http.MethodGet, target, "", "").Once().Return(response, err)
}

func (s *ClientSuite) TestNewClientWithoutProviders() {
	client, err := NewClient(s.Transport, s.Emitter, nil)
	s.Require().Nil(client)
	s.Require().ErrorIs(err, ErrNoProviders)
}

func (s *ClientSuite) TestProvidersAreCopied() {
	providers := []Provider{s.ProviderA}
	client, err := NewClient(s.Transport, s.Emitter, providers)
	s.Require().NoError(err)
	providers[0] = s.ProviderB
	s.Require().Equal([]Provider{s.ProviderA}, client.Providers())
}

func (s *ClientSuite) TestQueryUUIDsPartialResolution() {
	s.expectBulk(s.ProviderA, `["alice","bob"]`, `[{"id":"not-an-id","name":"broken"},{"id":"a11ce000000040008000000000000001","name":"alice"}]`, nil)
	s.expectBulk(s.ProviderB, `["bob"]`, `[{"id":"b0b00000000040008000000000000002","name":"bob"}]`, nil)

	result := s.Client.QueryUUIDs(context.Background(), []string{"alice", "bob"})

	s.Require().Equal(map[string]uuid.UUID{"alice": aliceId, "bob": bobId}, result)
	s.Require().Len(s.Emitter.Events("yggdrasil:malformed_record"), 1)
	s.Require().Equal([][]interface{}{{OpQueryUUIDs, "alice, bob", true}}, s.Emitter.Events("yggdrasil:result"))
}

func (s *ClientSuite) TestQueryUUIDsStopsWhenEverythingIsResolved() {
	s.expectBulk(s.ProviderA, `["alice","bob"]`, `[{"id":"a11ce000000040008000000000000001","name":"alice"},{"id":"b0b00000000040008000000000000002","name":"bob"}]`, nil)

	result := s.Client.QueryUUIDs(context.Background(), []string{"alice", "bob"})

	s.Require().Equal(map[string]uuid.UUID{"alice": aliceId, "bob": bobId}, result)
}

func (s *ClientSuite) TestQueryUUIDsTransportError() {
	transportErr := errors.New("connection refused")
	s.expectBulk(s.ProviderA, `["alice"]`, "", transportErr)
	s.expectBulk(s.ProviderB, `["alice"]`, `[{"id":"a11ce000000040008000000000000001","name":"alice"}]`, nil)

	result := s.Client.QueryUUIDs(context.Background(), []string{"alice"})

	s.Require().Equal(map[string]uuid.UUID{"alice": aliceId}, result)
	s.Require().Equal([][]interface{}{
		{OpQueryUUIDs, "https://a.example.com/", "alice", false, transportErr},
		{OpQueryUUIDs, "https://b.example.com/", "alice", true, nil},
	}, s.Emitter.Events("yggdrasil:after_call"))
}

func (s *ClientSuite) TestQueryUUIDsEmptyAndMalformedResponses() {
	s.expectBulk(s.ProviderA, `["alice"]`, "", nil)
	s.expectBulk(s.ProviderB, `["alice"]`, `{"error":"oops"}`, nil)

	result := s.Client.QueryUUIDs(context.Background(), []string{"alice"})

	s.Require().Empty(result)
	afterCalls := s.Emitter.Events("yggdrasil:after_call")
	s.Require().Len(afterCalls, 2)
	s.Require().Nil(afterCalls[0][4])
	s.Require().IsType(&MalformedResponseError{}, afterCalls[1][4])
	s.Require().Equal([][]interface{}{{OpQueryUUIDs, "alice", false}}, s.Emitter.Events("yggdrasil:result"))
}

func (s *ClientSuite) TestQueryUUIDsMalformedRecordIsSkipped() {
	s.expectBulk(s.ProviderA, `["alice","bob"]`, `[{"id":"zzz","name":"alice"},{"id":"b0b00000000040008000000000000002","name":"bob"}]`, nil)
	s.expectBulk(s.ProviderB, `["alice"]`, `[]`, nil)

	result := s.Client.QueryUUIDs(context.Background(), []string{"alice", "bob"})

	s.Require().Equal(map[string]uuid.UUID{"bob": bobId}, result)
}

func (s *ClientSuite) TestQueryUUIDsIsCaseInsensitive() {
	s.expectBulk(s.ProviderA, `["Alice","bob"]`, `[{"id":"a11ce000000040008000000000000001","name":"alice"}]`, nil)
	s.expectBulk(s.ProviderB, `["bob"]`, `[{"id":"b0b00000000040008000000000000002","name":"Bob"},{"id":"b0b00000000040008000000000000003","name":"ALICE"}]`, nil)

	result := s.Client.QueryUUIDs(context.Background(), []string{"Alice", "bob", "ALICE", "Bob"})

	s.Require().Equal(map[string]uuid.UUID{"alice": aliceId, "Bob": bobId}, result)
}

func (s *ClientSuite) TestQueryUUIDsIgnoresNotRequestedNames() {
	s.expectBulk(s.ProviderA, `["alice"]`, `[{"id":"b0b00000000040008000000000000002","name":"bob"}]`, nil)
	s.expectBulk(s.ProviderB, `["alice"]`, `[{"id":"a11ce000000040008000000000000001","name":"alice"}]`, nil)

	result := s.Client.QueryUUIDs(context.Background(), []string{"alice"})

	s.Require().Equal(map[string]uuid.UUID{"alice": aliceId}, result)
	s.Require().Equal(false, s.Emitter.Events("yggdrasil:after_call")[0][3])
}

func (s *ClientSuite) TestQueryUUIDsWithBatches() {
	client, _ := NewClient(s.Transport, s.Emitter, []Provider{s.ProviderA, s.ProviderB}, WithBulkBatchSize(2))
	s.expectBulk(s.ProviderA, `["a1","a2"]`, "", errors.New("timeout"))
	s.expectBulk(s.ProviderA, `["a3"]`, `[{"id":"a11ce000000040008000000000000001","name":"a3"}]`, nil)
	s.expectBulk(s.ProviderB, `["a1","a2"]`, `[{"id":"b0b00000000040008000000000000002","name":"a2"}]`, nil)

	result := client.QueryUUIDs(context.Background(), []string{"a1", "a2", "a3"})

	s.Require().Equal(map[string]uuid.UUID{"a2": bobId, "a3": aliceId}, result)
}

func (s *ClientSuite) TestQueryUUIDsWithoutNames() {
	result := s.Client.QueryUUIDs(context.Background(), nil)
	s.Require().Empty(result)
}

func (s *ClientSuite) TestQueryUUIDsCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := s.Client.QueryUUIDs(ctx, []string{"alice"})
	s.Require().Empty(result)
}

func (s *ClientSuite) TestQueryUUID() {
	s.Run("found", func() {
		s.expectBulk(s.ProviderA, `["ALICE"]`, `[{"id":"a11ce000000040008000000000000001","name":"alice"}]`, nil)

		id, ok := s.Client.QueryUUID(context.Background(), "ALICE")
		s.Require().True(ok)
		s.Require().Equal(aliceId, id)
	})

	s.Run("not found", func() {
		s.expectBulk(s.ProviderA, `["nobody"]`, "", nil)
		s.expectBulk(s.ProviderB, `["nobody"]`, `[]`, nil)

		id, ok := s.Client.QueryUUID(context.Background(), "nobody")
		s.Require().False(ok)
		s.Require().Equal(uuid.Nil, id)
	})
}

func (s *ClientSuite) TestQueryProfileFallback() {
	s.expectGet(s.ProviderA.ProfileTarget(aliceId), "", errors.New("connection reset"))
	s.expectGet(s.ProviderB.ProfileTarget(aliceId), `{"id":"a11ce000000040008000000000000001","name":"alice","properties":[]}`, nil)

	profile := s.Client.QueryProfile(context.Background(), aliceId, false)

	s.Require().NotNil(profile)
	s.Require().Equal(aliceId, profile.Id)
	s.Require().Equal("alice", profile.Name)
	s.Require().Equal([][]interface{}{{OpQueryProfile, aliceId.String(), true}}, s.Emitter.Events("yggdrasil:result"))
}

func (s *ClientSuite) TestQueryProfileFirstSuccessWins() {
	s.expectGet(
		s.ProviderA.ProfileTarget(aliceId)+"?unsigned=false",
		`{"id":"a11ce000000040008000000000000001","name":"alice","properties":[{"name":"textures","value":"abc","signature":"sig"}]}`,
		nil,
	)

	profile := s.Client.QueryProfile(context.Background(), aliceId, true)

	s.Require().NotNil(profile)
	textures, ok := profile.Properties.Get("textures")
	s.Require().True(ok)
	s.Require().Equal("sig", *textures.Signature)
}

func (s *ClientSuite) TestQueryProfileSkipsUnparseableResponse() {
	s.expectGet(s.ProviderA.ProfileTarget(aliceId), `{"id":"broken","name":"alice"}`, nil)
	s.expectGet(s.ProviderB.ProfileTarget(aliceId), `{"id":"a11ce000000040008000000000000001","name":"alice","properties":[]}`, nil)

	profile := s.Client.QueryProfile(context.Background(), aliceId, false)

	s.Require().NotNil(profile)
	s.Require().Equal("alice", profile.Name)
}

func (s *ClientSuite) TestNobodyResponds() {
	s.expectGet(s.ProviderA.ProfileTarget(aliceId), "", nil)
	s.expectGet(s.ProviderB.ProfileTarget(aliceId), "  ", nil)
	s.expectBulk(s.ProviderA, `["alice"]`, "", nil)
	s.expectBulk(s.ProviderB, `["alice"]`, "", nil)
	s.expectGet(s.ProviderA.JoinCheckTarget("alice", "deadbeef"), "", nil)
	s.expectGet(s.ProviderB.JoinCheckTarget("alice", "deadbeef"), "", nil)

	s.Require().Nil(s.Client.QueryProfile(context.Background(), aliceId, false))
	_, found := s.Client.QueryUUID(context.Background(), "alice")
	s.Require().False(found)
	s.Require().Nil(s.Client.HasJoined(context.Background(), "alice", "deadbeef"))
}

func (s *ClientSuite) TestHasJoined() {
	s.expectGet(s.ProviderA.JoinCheckTarget("Steve", "deadbeef"), "", &ServerError{Status: 503})
	s.expectGet(
		s.ProviderB.JoinCheckTarget("Steve", "deadbeef"),
		`{"id":"4566e69fc90748ee8d71d7ba5aa00d20","name":"Steve","properties":[{"name":"textures","value":"abc","signature":"sig"}]}`,
		nil,
	)

	profile := s.Client.HasJoined(context.Background(), "Steve", "deadbeef")

	s.Require().NotNil(profile)
	s.Require().Equal(mockId, profile.Id)
	s.Require().Equal("Steve", profile.Name)
	textures, ok := profile.Properties.Get("textures")
	s.Require().True(ok)
	s.Require().Equal("abc", textures.Value)
	s.Require().Equal("sig", *textures.Signature)
	s.Require().Equal([][]interface{}{
		{OpHasJoined, "https://a.example.com/", "Steve deadbeef"},
		{OpHasJoined, "https://b.example.com/", "Steve deadbeef"},
	}, s.Emitter.Events("yggdrasil:before_call"))
}

func (s *ClientSuite) TestHasJoinedSkipsProfileWithoutProperties() {
	s.expectGet(s.ProviderA.JoinCheckTarget("Steve", "deadbeef"), `{"id":"4566e69fc90748ee8d71d7ba5aa00d20","name":"Steve"}`, nil)
	s.expectGet(
		s.ProviderB.JoinCheckTarget("Steve", "deadbeef"),
		`{"id":"4566e69fc90748ee8d71d7ba5aa00d20","name":"Steve","properties":[{"name":"textures","value":"abc","signature":"sig"}]}`,
		nil,
	)

	profile := s.Client.HasJoined(context.Background(), "Steve", "deadbeef")

	s.Require().NotNil(profile)
	s.Require().Equal(1, profile.Properties.Len())
	textures, ok := profile.Properties.Get("textures")
	s.Require().True(ok)
	s.Require().Equal("abc", textures.Value)

	afterCalls := s.Emitter.Events("yggdrasil:after_call")
	s.Require().Len(afterCalls, 2)
	s.Require().IsType(&MalformedResponseError{}, afterCalls[0][4])
	s.Require().Equal(true, afterCalls[1][3])
}

func TestClient(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func TestChunkNames(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunkNames(names, 2))
	require.Equal(t, [][]string{names}, chunkNames(names, 0))
	require.Equal(t, [][]string{names}, chunkNames(names, 10))
	require.Nil(t, chunkNames(nil, 2))
}

func TestClientOverHttp(t *testing.T) {
	defer gock.Off()

	httpClient := &http.Client{}
	gock.InterceptClient(httpClient)

	gock.New("https://a.example.com").
		Post("/api/profiles/minecraft").
		JSON([]string{"alice", "bob"}).
		Reply(200).
		JSON([]map[string]any{
			{"id": "a11ce000000040008000000000000001", "name": "alice"},
		})
	gock.New("https://b.example.com").
		Post("/api/profiles/minecraft").
		JSON([]string{"bob"}).
		Reply(200).
		JSON([]map[string]any{
			{"id": "b0b00000000040008000000000000002", "name": "bob"},
		})
	gock.New("https://a.example.com").
		Get("/sessionserver/session/minecraft/hasJoined").
		MatchParam("username", "^Steve$").
		MatchParam("serverId", "^deadbeef$").
		Reply(204)
	gock.New("https://b.example.com").
		Get("/sessionserver/session/minecraft/hasJoined").
		MatchParam("username", "^Steve$").
		MatchParam("serverId", "^deadbeef$").
		Reply(200).
		JSON(map[string]any{
			"id":   "4566e69fc90748ee8d71d7ba5aa00d20",
			"name": "Steve",
			"properties": []any{
				map[string]any{"name": "textures", "value": "abc", "signature": "sig"},
			},
		})

	client, err := NewClient(
		NewHttpTransport(httpClient),
		&EmitterMock{},
		[]Provider{NewRootProvider("https://a.example.com/"), NewRootProvider("https://b.example.com")},
	)
	require.NoError(t, err)

	uuids := client.QueryUUIDs(context.Background(), []string{"alice", "bob"})
	require.Equal(t, map[string]uuid.UUID{"alice": aliceId, "bob": bobId}, uuids)

	profile := client.HasJoined(context.Background(), "Steve", "deadbeef")
	require.NotNil(t, profile)
	require.Equal(t, "Steve", profile.Name)

	require.True(t, gock.IsDone())
}
