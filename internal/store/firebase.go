package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"firebase.google.com/go/v4/db"
	"golang.org/x/oauth2"
)

// FirebaseStore implements Store on top of the Firebase Realtime Database.
// One-shot reads and all writes go through the admin SDK's db client; Merge
// maps to a root-level multi-path update, which the database applies
// atomically. Subscriptions use the database's REST streaming protocol
// (text/event-stream) because the admin SDK has no listener API: each
// subscription keeps a shadow copy of its subtree, applies the streamed
// put/patch events to it, and re-emits the whole subtree as a full snapshot.
type FirebaseStore struct {
	client      *db.Client
	databaseURL string
	tokens      oauth2.TokenSource
	httpc       *http.Client
	errs        chan error

	mu     sync.Mutex
	closed bool
	cancel map[int]context.CancelFunc
	nextID int
}

// NewFirebaseStore wraps an initialized database client. databaseURL is the
// instance URL ("https://<project>.firebasedatabase.app"); tokens supplies
// OAuth access tokens with the firebase.database scope for the streaming
// endpoint.
func NewFirebaseStore(client *db.Client, databaseURL string, tokens oauth2.TokenSource) *FirebaseStore {
	return &FirebaseStore{
		client:      client,
		databaseURL: strings.TrimRight(databaseURL, "/"),
		tokens:      tokens,
		httpc:       &http.Client{},
		errs:        make(chan error, 16),
		cancel:      make(map[int]context.CancelFunc),
	}
}

func (s *FirebaseStore) Subscribe(path string, fn SnapshotFunc) (func(), error) {
	ctx, stop := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stop()
		return nil, ErrClosed
	}
	id := s.nextID
	s.nextID++
	s.cancel[id] = stop
	s.mu.Unlock()

	go s.stream(ctx, path, fn)

	return func() {
		s.mu.Lock()
		if c, ok := s.cancel[id]; ok {
			delete(s.cancel, id)
			c()
		}
		s.mu.Unlock()
	}, nil
}

func (s *FirebaseStore) Get(ctx context.Context, path string, v any) error {
	return s.client.NewRef(path).Get(ctx, v)
}

func (s *FirebaseStore) Write(ctx context.Context, path string, v any) error {
	ref := s.client.NewRef(path)
	if v == nil {
		return ref.Delete(ctx)
	}
	return ref.Set(ctx, v)
}

func (s *FirebaseStore) Merge(ctx context.Context, updates map[string]any) error {
	flat := make(map[string]any, len(updates))
	paths := make([][]string, 0, len(updates))
	for p, v := range updates {
		segs := splitPath(p)
		for _, prev := range paths {
			if pathsOverlap(segs, prev) {
				return ErrConflictingPaths
			}
		}
		paths = append(paths, segs)
		flat[strings.Join(segs, "/")] = v
	}
	return s.client.NewRef("/").Update(ctx, flat)
}

// errClaimLost aborts a claim transaction when the location already holds
// a different value.
var errClaimLost = errors.New("store: claim lost")

func (s *FirebaseStore) Claim(ctx context.Context, path string, value any) (bool, error) {
	desired, err := toTree(value)
	if err != nil {
		return false, fmt.Errorf("encode value for %q: %w", path, err)
	}
	ref := s.client.NewRef(strings.Join(splitPath(path), "/"))
	err = ref.Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current any
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if current != nil && !reflect.DeepEqual(current, desired) {
			return nil, errClaimLost
		}
		return desired, nil
	})
	if errors.Is(err, errClaimLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FirebaseStore) PushKey(string) string {
	return newPushKey()
}

func (s *FirebaseStore) Errors() <-chan error { return s.errs }

// Close detaches every streaming listener.
func (s *FirebaseStore) Close() {
	s.mu.Lock()
	s.closed = true
	for id, c := range s.cancel {
		delete(s.cancel, id)
		c()
	}
	s.mu.Unlock()
}

// stream runs one REST streaming session until the subscription is
// cancelled or the session fails. There is deliberately no automatic
// reconnect: transport failures surface on Errors and the owner decides.
func (s *FirebaseStore) stream(ctx context.Context, path string, fn SnapshotFunc) {
	url := s.databaseURL + "/" + strings.Join(splitPath(path), "/") + ".json"
	if s.tokens != nil {
		tok, err := s.tokens.Token()
		if err != nil {
			s.report(fmt.Errorf("subscribe %s: token: %w", path, err))
			return
		}
		url += "?access_token=" + tok.AccessToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.report(fmt.Errorf("subscribe %s: %w", path, err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.httpc.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			s.report(fmt.Errorf("subscribe %s: %w", path, err))
		}
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.report(fmt.Errorf("subscribe %s: stream rejected: %s", path, resp.Status))
		return
	}

	var shadow any
	var event, data string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			if event == "" {
				continue
			}
			done, err := applyStreamEvent(&shadow, event, data)
			if err != nil {
				s.report(fmt.Errorf("subscribe %s: %w", path, err))
				return
			}
			if done {
				s.report(fmt.Errorf("subscribe %s: stream cancelled by server (%s)", path, event))
				return
			}
			if event == "put" || event == "patch" {
				snap, err := json.Marshal(shadow)
				if err != nil {
					s.report(fmt.Errorf("subscribe %s: %w", path, err))
					return
				}
				fn(snap)
			}
			event, data = "", ""
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.report(fmt.Errorf("subscribe %s: stream closed: %w", path, err))
	}
}

// applyStreamEvent folds one server-sent event into the shadow tree.
// Returns done=true for server-side terminations (cancel, auth_revoked).
func applyStreamEvent(shadow *any, event, data string) (done bool, err error) {
	switch event {
	case "keep-alive":
		return false, nil
	case "cancel", "auth_revoked":
		return true, nil
	case "put", "patch":
	default:
		return false, nil
	}

	var body struct {
		Path string          `json:"path"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return false, fmt.Errorf("malformed %s event: %w", event, err)
	}
	rel := splitPath(body.Path)

	if event == "put" {
		var value any
		if err := json.Unmarshal(body.Data, &value); err != nil {
			return false, fmt.Errorf("malformed put payload: %w", err)
		}
		*shadow = setAt(*shadow, rel, value)
		return false, nil
	}

	var children map[string]any
	if err := json.Unmarshal(body.Data, &children); err != nil {
		return false, fmt.Errorf("malformed patch payload: %w", err)
	}
	for child, value := range children {
		*shadow = setAt(*shadow, append(append([]string{}, rel...), splitPath(child)...), value)
	}
	return false, nil
}

func (s *FirebaseStore) report(err error) {
	select {
	case s.errs <- err:
	default:
		// A full error channel means nobody is draining it; drop rather
		// than block the stream goroutine.
	}
}
