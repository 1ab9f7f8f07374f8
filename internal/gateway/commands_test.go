package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"holdem-lite/internal/identity"
	"holdem-lite/internal/store"
)

func newTestGateway(t *testing.T) (*Gateway, *identity.Manager, *identity.Membership) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := identity.NewManager([]byte("test-secret"))
	membership := identity.NewMembership()
	g := New(accounts, membership, db)
	t.Cleanup(g.Stop)
	return g, accounts, membership
}

func newAuthedRequest(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHandleCreateTable_RequiresOwnership(t *testing.T) {
	g, accounts, membership := newTestGateway(t)
	mux := http.NewServeMux()
	g.RegisterRoutes(mux)

	userID, token, err := accounts.Register("alice", "hunter22")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := newAuthedRequest(t, http.MethodPost, "/api/tables", token, createTableRequest{
		ClubID: "club-1", Name: "Main", MaxSeats: 6, SmallBlind: 1, BigBlind: 2,
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner creating a table, got %d: %s", rec.Code, rec.Body.String())
	}

	membership.SetOwner("club-1", userID)
	rec = httptest.NewRecorder()
	req = newAuthedRequest(t, http.MethodPost, "/api/tables", token, createTableRequest{
		ClubID: "club-1", Name: "Main", MaxSeats: 6, SmallBlind: 1, BigBlind: 2,
	})
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for the club owner, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp createTableResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TableID == "" {
		t.Fatalf("expected a non-empty table id")
	}
}

func TestHandleSit_RequiresApprovedMembership(t *testing.T) {
	g, accounts, membership := newTestGateway(t)
	mux := http.NewServeMux()
	g.RegisterRoutes(mux)

	ownerID, ownerToken, err := accounts.Register("owner", "hunter22")
	if err != nil {
		t.Fatalf("Register owner: %v", err)
	}
	membership.SetOwner("club-1", ownerID)

	createRec := httptest.NewRecorder()
	createReq := newAuthedRequest(t, http.MethodPost, "/api/tables", ownerToken, createTableRequest{
		ClubID: "club-1", Name: "Main", MaxSeats: 6, SmallBlind: 1, BigBlind: 2,
	})
	mux.ServeHTTP(createRec, createReq)
	if createRec.Code != http.StatusOK {
		t.Fatalf("expected table creation to succeed, got %d: %s", createRec.Code, createRec.Body.String())
	}
	var created createTableResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	_, memberToken, err := accounts.Register("bob", "hunter22")
	if err != nil {
		t.Fatalf("Register member: %v", err)
	}

	sitReq := newAuthedRequest(t, http.MethodPost, "/api/tables/"+created.TableID+"/sit", memberToken, sitRequest{
		Seat: 0, BuyIn: 100, Name: "bob",
	})
	sitRec := httptest.NewRecorder()
	mux.ServeHTTP(sitRec, sitReq)
	if sitRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-member sitting at the table, got %d: %s", sitRec.Code, sitRec.Body.String())
	}
}

func TestHandleCloseTable_RequiresOwnership(t *testing.T) {
	g, accounts, membership := newTestGateway(t)
	mux := http.NewServeMux()
	g.RegisterRoutes(mux)

	ownerID, ownerToken, err := accounts.Register("owner", "hunter22")
	if err != nil {
		t.Fatalf("Register owner: %v", err)
	}
	membership.SetOwner("club-1", ownerID)

	createRec := httptest.NewRecorder()
	createReq := newAuthedRequest(t, http.MethodPost, "/api/tables", ownerToken, createTableRequest{
		ClubID: "club-1", Name: "Main", MaxSeats: 6, SmallBlind: 1, BigBlind: 2,
	})
	mux.ServeHTTP(createRec, createReq)
	var created createTableResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	_, memberToken, err := accounts.Register("bob", "hunter22")
	if err != nil {
		t.Fatalf("Register member: %v", err)
	}
	membership.Approve("club-1", mustResolve(t, accounts, memberToken), identity.RoleMember)

	closeReq := newAuthedRequest(t, http.MethodPost, "/api/tables/"+created.TableID+"/close", memberToken, nil)
	closeRec := httptest.NewRecorder()
	mux.ServeHTTP(closeRec, closeReq)
	if closeRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner closing the table, got %d: %s", closeRec.Code, closeRec.Body.String())
	}

	closeReq = newAuthedRequest(t, http.MethodPost, "/api/tables/"+created.TableID+"/close", ownerToken, nil)
	closeRec = httptest.NewRecorder()
	mux.ServeHTTP(closeRec, closeReq)
	if closeRec.Code != http.StatusOK {
		t.Fatalf("expected 200 for the owner closing the table, got %d: %s", closeRec.Code, closeRec.Body.String())
	}
}

func mustResolve(t *testing.T, accounts *identity.Manager, token string) string {
	t.Helper()
	userID, ok := accounts.ResolveToken(token)
	if !ok {
		t.Fatalf("expected token to resolve")
	}
	return userID
}
