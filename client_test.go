package mailactivate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService answers handler_api.php requests with scripted bodies per
// action and records every query it receives.
type fakeService struct {
	mu        sync.Mutex
	responses map[string][]string
	queries   []url.Values
}

func newFakeService(t *testing.T) (*fakeService, *Client) {
	t.Helper()

	f := &fakeService{responses: make(map[string][]string)}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)

	client, err := New("test-key", WithBaseURL(server.URL+"/stubs/handler_api.php"))
	require.NoError(t, err)
	return f, client
}

// on queues bodies for action. The last body is repeated once the queue is
// drained.
func (f *fakeService) on(action string, bodies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[action] = append(f.responses[action], bodies...)
}

func (f *fakeService) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	f.queries = append(f.queries, q)

	action := q.Get("action")
	bodies := f.responses[action]
	if len(bodies) == 0 {
		w.Write([]byte(`{"status":"ERROR","error":"BAD_ACTION"}`))
		return
	}
	body := bodies[0]
	if len(bodies) > 1 {
		f.responses[action] = bodies[1:]
	}
	w.Write([]byte(body))
}

func (f *fakeService) calls(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, q := range f.queries {
		if q.Get("action") == action {
			n++
		}
	}
	return n
}

func (f *fakeService) lastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNew_DefaultBaseURL(t *testing.T) {
	client, err := New("test-key")
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, client.BaseURL())
}

func TestNew_RejectsEmptyBaseURL(t *testing.T) {
	_, err := New("test-key", WithBaseURL(""))
	assert.Error(t, err)
}

func TestNew_SendsUserAgent(t *testing.T) {
	got := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("User-Agent")
		w.Write([]byte(`{"status":"OK","response":{}}`))
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)
	_, err = client.ListDomains(context.Background(), "instagram.com")
	require.NoError(t, err)
	assert.Equal(t, "mailactivate-go/"+Version, <-got)
}

func TestListDomains(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getDomains", `{"status":"OK","response":{
		"zones":[{"name":"xyz","cost":0.2},{"name":"com"}],
		"popular":[{"name":"outlook.com","cost":"1.5","count":"120"},{"name":"gmail.com","cost":3,"count":0}]
	}}`)

	domains, err := client.ListDomains(context.Background(), "instagram.com")
	require.NoError(t, err)

	assert.Equal(t, []Domain{
		{Name: "xyz", Category: CategoryZone, Cost: 0.2, Count: -1},
		{Name: "com", Category: CategoryZone, Cost: -1, Count: -1},
		{Name: "outlook.com", Category: CategoryPopular, Cost: 1.5, Count: 120},
		{Name: "gmail.com", Category: CategoryPopular, Cost: 3, Count: 0},
	}, domains)

	q := f.lastQuery()
	assert.Equal(t, "test-key", q.Get("api_key"))
	assert.Equal(t, "instagram.com", q.Get("site"))
}

func TestListDomains_EmptyPayload(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getDomains", `{"status":"OK","response":{}}`)

	domains, err := client.ListDomains(context.Background(), "instagram.com")
	require.NoError(t, err)
	assert.Empty(t, domains)
}

func TestListDomains_BadSite(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getDomains", `{"status":"ERROR","error":"BLOCKED_SITE"}`)

	_, err := client.ListDomains(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBadSite)
	assert.ErrorIs(t, err, ErrService)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "BLOCKED_SITE", svcErr.Code)
	assert.NotEmpty(t, svcErr.RequestID)
}

func TestPurchaseMailbox(t *testing.T) {
	f, client := newFakeService(t)
	f.on("buyMailActivation", `{"status":"OK","response":{"id":"1111","email":"a@outlook.com"}}`)

	a, err := client.PurchaseMailbox(context.Background(), "instagram.com", NewDomain("outlook.com", CategoryPopular))
	require.NoError(t, err)

	assert.Equal(t, int64(1111), a.ID)
	assert.Equal(t, "a@outlook.com", a.Email)
	assert.Nil(t, a.Details)
	assert.False(t, a.HasMessage())

	q := f.lastQuery()
	assert.Equal(t, "instagram.com", q.Get("site"))
	assert.Equal(t, "2", q.Get("mail_type"))
	assert.Equal(t, "outlook.com", q.Get("mail_domain"))
}

func TestPurchaseMailbox_ZoneSendsMailTypeOne(t *testing.T) {
	f, client := newFakeService(t)
	f.on("buyMailActivation", `{"status":"OK","response":{"id":7,"email":"b@mail.xyz"}}`)

	_, err := client.PurchaseMailbox(context.Background(), "instagram.com", NewDomain("xyz", CategoryZone))
	require.NoError(t, err)
	assert.Equal(t, "1", f.lastQuery().Get("mail_type"))
}

func TestPurchaseMailbox_Errors(t *testing.T) {
	tests := []struct {
		code     string
		sentinel error
	}{
		{"BAD_BALANCE", ErrBadBalance},
		{"CHANNELS_LIMIT", ErrChannelsLimit},
		{"MAIL_TYPE_ERROR", ErrBadDomain},
		{"BAD_SITE", ErrBadSite},
		{"BAD_KEY", ErrBadAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			f, client := newFakeService(t)
			f.on("buyMailActivation", `{"status":"ERROR","error":"`+tt.code+`"}`)

			a, err := client.PurchaseMailbox(context.Background(), "instagram.com", NewDomain("outlook.com", CategoryPopular))
			assert.Nil(t, a)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, ErrService)
		})
	}
}

func TestListActivations_Defaults(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getMailHistory", `{"status":"OK","response":{"list":[]}}`)

	activations, err := client.ListActivations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, activations)

	q := f.lastQuery()
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "10", q.Get("per_page"))
	assert.Equal(t, "desc", q.Get("sort"))
	assert.False(t, q.Has("search"))
}

func TestListActivations_Options(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getMailHistory", `{"status":"OK","response":{"list":[]}}`)

	_, err := client.ListActivations(context.Background(),
		WithPage(3),
		WithPerPage(50),
		WithSearch("a@outlook.com"),
		WithSort(SortAsc),
	)
	require.NoError(t, err)

	q := f.lastQuery()
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "50", q.Get("per_page"))
	assert.Equal(t, "a@outlook.com", q.Get("search"))
	assert.Equal(t, "asc", q.Get("sort"))
}

func TestListActivations_PopulatesDetails(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getMailHistory", `{"status":"OK","response":{"list":[
		{"id":2,"email":"b@outlook.com","site":"instagram.com","status":1,"value":"","cost":"1.5","date":"2024-03-01 10:20:30","full_message":null},
		{"id":"1","email":"a@outlook.com","site":"instagram.com","status":"2","value":"123456","cost":1.5,"date":"2024-02-28 08:00:00","full_message":"Your code is 123456"}
	]}}`)

	activations, err := client.ListActivations(context.Background())
	require.NoError(t, err)
	require.Len(t, activations, 2)

	first := activations[0]
	assert.Equal(t, int64(2), first.ID)
	assert.Equal(t, "b@outlook.com", first.Email)
	require.NotNil(t, first.Details)
	assert.Equal(t, "instagram.com", first.Details.Site)
	assert.Equal(t, 1, first.Details.Status)
	assert.Equal(t, 1.5, first.Details.Cost)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), first.Details.CreatedAt)
	assert.False(t, first.HasMessage())

	second := activations[1]
	assert.Equal(t, int64(1), second.ID)
	assert.Equal(t, "123456", second.Details.Value)
	assert.Equal(t, 2, second.Details.Status)
	assert.True(t, second.HasMessage())
	assert.Equal(t, "Your code is 123456", second.FullMessage)
}

func TestListActivations_MalformedEntry(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getMailHistory", `{"status":"OK","response":{"list":[{"site":"instagram.com"}]}}`)

	_, err := client.ListActivations(context.Background())
	assert.ErrorIs(t, err, ErrService)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Empty(t, svcErr.Code)
	assert.NotEmpty(t, svcErr.Body)
}

func TestFetchMessage_SucceedsOnThirdAttempt(t *testing.T) {
	f, client := newFakeService(t)
	f.on("checkMailActivation",
		`{"status":"OK","response":{}}`,
		`{"status":"OK","response":{"full_message":null}}`,
		`{"status":"OK","response":{"full_message":"Your code is 4321"}}`,
	)

	a := &Activation{ID: 1111, Email: "a@outlook.com"}
	msg, err := client.FetchMessage(context.Background(), a, WithAttempts(5), WithPollPeriod(0))
	require.NoError(t, err)

	assert.Equal(t, "Your code is 4321", msg)
	assert.Equal(t, "Your code is 4321", a.FullMessage)
	assert.True(t, a.HasMessage())
	assert.Equal(t, 3, f.calls("checkMailActivation"))
	assert.Equal(t, "1111", f.lastQuery().Get("id"))
}

func TestFetchMessage_Timeout(t *testing.T) {
	f, client := newFakeService(t)
	f.on("checkMailActivation", `{"status":"OK","response":{}}`)

	a := &Activation{ID: 1111, Email: "a@outlook.com"}
	msg, err := client.FetchMessage(context.Background(), a, WithAttempts(2), WithPollPeriod(0))

	assert.Empty(t, msg)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrService)
	assert.Equal(t, 2, f.calls("checkMailActivation"))
	assert.False(t, a.HasMessage())

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 2, timeoutErr.Attempts)
}

func TestFetchMessage_ServiceErrorStopsPolling(t *testing.T) {
	f, client := newFakeService(t)
	f.on("checkMailActivation",
		`{"status":"OK","response":{}}`,
		`{"status":"ERROR","error":"NO_ACTIVATION"}`,
	)

	a := &Activation{ID: 1111, Email: "a@outlook.com"}
	_, err := client.FetchMessage(context.Background(), a, WithAttempts(10), WithPollPeriod(0))

	assert.ErrorIs(t, err, ErrActivationNotFound)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, f.calls("checkMailActivation"))
}

func TestFetchMessage_WaitLinkIsNotRetried(t *testing.T) {
	f, client := newFakeService(t)
	f.on("checkMailActivation", `{"status":"ERROR","error":"WAIT_LINK"}`)

	a := &Activation{ID: 1111, Email: "a@outlook.com"}
	_, err := client.FetchMessage(context.Background(), a, WithPollPeriod(0))

	assert.ErrorIs(t, err, ErrWaitingForMessage)
	assert.Equal(t, 1, f.calls("checkMailActivation"))
}

func TestFetchMessage_InvalidAttempts(t *testing.T) {
	f, client := newFakeService(t)

	a := &Activation{ID: 1111, Email: "a@outlook.com"}
	for _, attempts := range []int{0, -1} {
		_, err := client.FetchMessage(context.Background(), a, WithAttempts(attempts))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrService)
	}
	assert.Equal(t, 0, f.calls("checkMailActivation"))
}

func TestFetchMessage_ContextCancelledWhileWaiting(t *testing.T) {
	f, client := newFakeService(t)
	f.on("checkMailActivation", `{"status":"OK","response":{}}`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	a := &Activation{ID: 1111, Email: "a@outlook.com"}
	_, err := client.FetchMessage(ctx, a, WithAttempts(5), WithPollPeriod(time.Hour))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.calls("checkMailActivation"))
}

func TestReactivate_MutatesInPlace(t *testing.T) {
	f, client := newFakeService(t)
	f.on("reorderMailActivation", `{"status":"OK","response":{"id":2222,"email":"b@outlook.com"}}`)

	a := &Activation{
		ID:          1111,
		Email:       "a@outlook.com",
		Details:     &ActivationDetails{Site: "instagram.com", Status: 2},
		FullMessage: "old message",
	}
	same := a

	ok, err := client.Reactivate(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Same(t, same, a)
	assert.Equal(t, int64(2222), a.ID)
	assert.Equal(t, "b@outlook.com", a.Email)
	assert.Nil(t, a.Details)
	assert.Empty(t, a.FullMessage)
	assert.Equal(t, "1111", f.lastQuery().Get("id"))
}

func TestReactivate_ErrorLeavesActivationUntouched(t *testing.T) {
	f, client := newFakeService(t)
	f.on("reorderMailActivation", `{"status":"ERROR","error":"ACTIVATION_NOT_FOUND"}`)

	a := &Activation{ID: 1111, Email: "a@outlook.com", FullMessage: "msg"}
	ok, err := client.Reactivate(context.Background(), a)

	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrActivationNotFound)
	assert.Equal(t, &Activation{ID: 1111, Email: "a@outlook.com", FullMessage: "msg"}, a)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{`true`, true},
		{`1`, true},
		{`"ACCESS_CANCEL"`, true},
		{`false`, false},
		{`null`, false},
		{`0`, false},
		{`""`, false},
		{`"0"`, true},
		{`"false"`, true},
		{`[]`, false},
		{`{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			f, client := newFakeService(t)
			f.on("cancelMailActivation", `{"status":"OK","response":`+tt.payload+`}`)

			a := &Activation{ID: 1111, Email: "a@outlook.com", FullMessage: "msg"}
			before := *a

			ok, err := client.Cancel(context.Background(), a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, before, *a)
			assert.Equal(t, "1111", f.lastQuery().Get("id"))
		})
	}
}

func TestCancel_MissingResponseIsFalse(t *testing.T) {
	f, client := newFakeService(t)
	f.on("cancelMailActivation", `{"status":"OK"}`)

	ok, err := client.Cancel(context.Background(), &Activation{ID: 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilActivation(t *testing.T) {
	_, client := newFakeService(t)
	ctx := context.Background()

	_, err := client.FetchMessage(ctx, nil)
	assert.ErrorIs(t, err, ErrNilActivation)

	_, err = client.Reactivate(ctx, nil)
	assert.ErrorIs(t, err, ErrNilActivation)

	_, err = client.Cancel(ctx, nil)
	assert.ErrorIs(t, err, ErrNilActivation)
}

func TestErrorCodeWinsOverStatus(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getDomains", `{"status":"OK","error":"BAD_KEY"}`)

	_, err := client.ListDomains(context.Background(), "instagram.com")
	assert.ErrorIs(t, err, ErrBadAPIKey)
}

func TestNullErrorWithOKStatusSucceeds(t *testing.T) {
	f, client := newFakeService(t)
	f.on("getDomains", `{"status":"OK","error":null,"response":{"zones":[{"name":"xyz","cost":1}]}}`)

	domains, err := client.ListDomains(context.Background(), "instagram.com")
	require.NoError(t, err)
	assert.Equal(t, []Domain{{Name: "xyz", Category: CategoryZone, Cost: 1, Count: -1}}, domains)
}

func TestUnknownErrorCodeWithOKStatusSucceeds(t *testing.T) {
	f, client := newFakeService(t)
	f.on("cancelMailActivation", `{"status":"OK","error":"SOMETHING_NEW","response":true}`)

	ok, err := client.Cancel(context.Background(), &Activation{ID: 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenericServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":"ERROR","error":"BAD_KEY"}`))
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`BAD_KEY`))
		}},
		{"non-OK status", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ERROR_SQL"}`))
		}},
		{"unknown code", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ERROR","error":"SOMETHING_NEW"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client, err := New("test-key", WithBaseURL(server.URL))
			require.NoError(t, err)

			_, err = client.ListDomains(context.Background(), "instagram.com")
			assert.ErrorIs(t, err, ErrService)

			var svcErr *ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, ErrService, svcErr.Kind())
			for _, sentinel := range []error{ErrBadAPIKey, ErrBadSite, ErrActivationNotFound, ErrTimeout} {
				assert.NotErrorIs(t, err, sentinel)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, err := New("secret-key", WithBaseURL(baseURL), WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = client.ListDomains(context.Background(), "instagram.com")

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 1, netErr.Attempt)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.NotErrorIs(t, err, ErrService)

	var marker MailActivateError
	assert.True(t, errors.As(err, &marker))
}

func TestRetriesTransientStatus(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"OK","response":{"zones":[{"name":"xyz"}]}}`))
	}))
	defer server.Close()

	client, err := New("test-key",
		WithBaseURL(server.URL),
		WithRetries(2),
		WithRetryDelay(time.Millisecond),
	)
	require.NoError(t, err)

	domains, err := client.ListDomains(context.Background(), "instagram.com")
	require.NoError(t, err)
	assert.Len(t, domains, 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}
