package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recicla-upao/validation-core/pkg/auth"
	"github.com/recicla-upao/validation-core/pkg/ledger"
)

const testWallet = "0x1234567890abcdef1234567890ABCDEF12345678"

// fakeBackend serves the login and blockchain endpoints. Proposals start
// with the proposer's approval; one more executes them.
type fakeBackend struct {
	t         *testing.T
	mu        sync.Mutex
	users     map[string]string // username -> role
	proposals map[int64]*ledger.ActivityProposal
	auths     []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{
		t: t,
		users: map[string]string{
			"ong1":  "ONG",
			"maria": "PARTICIPANTE",
		},
		proposals: map[int64]*ledger.ActivityProposal{},
	}
	for i := int64(1); i <= 8; i++ {
		b.proposals[i] = &ledger.ActivityProposal{
			ID:             i,
			ProposerWallet: testWallet,
			WeightKg:       float64(i) * 1.5,
			MaterialType:   "PLASTICO",
			EvidenceRef:    "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			RewardAmount:   json.Number(fmt.Sprint(i * 10)),
			ApprovalCount:  1,
		}
	}
	b.proposals[2].EvidenceRef = "QmPendiente"
	return b
}

func (b *fakeBackend) token(role, username string) string {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:     role,
		Username: username,
		UserID:   7,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(b.t, err)
	return tok
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auths = append(b.auths, r.Header.Get("Authorization"))

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/usuario/login":
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		role, ok := b.users[req.Username]
		if !ok || req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Credenciales inválidas"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": b.token(role, req.Username)})

	case r.Method == http.MethodGet && r.URL.Path == "/blockchain/actividades/pendientes":
		var out []ledger.ActivityProposal
		for i := int64(1); i <= int64(len(b.proposals)); i++ {
			if p := b.proposals[i]; !p.Terminal() {
				out = append(out, *p)
			}
		}
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodGet && r.URL.Path == "/blockchain/balance":
		writeJSON(w, http.StatusOK, map[string]any{"balance": json.Number("150")})

	case strings.HasPrefix(r.URL.Path, "/blockchain/actividades/"):
		b.serveProposal(w, r)

	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) serveProposal(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/blockchain/actividades/")
	idPart, action, _ := strings.Cut(rest, "/")
	var id int64
	_, _ = fmt.Sscan(idPart, &id)
	p, ok := b.proposals[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Actividad no encontrada"})
		return
	}

	switch {
	case r.Method == http.MethodGet && action == "":
		writeJSON(w, http.StatusOK, p)
	case r.Method == http.MethodPost && (action == "aprobar" || action == "rechazar"):
		if p.Terminal() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "La actividad ya fue procesada"})
			return
		}
		if action == "aprobar" {
			p.ApprovalCount++
			p.Executed = p.ApprovalCount >= 2
		} else {
			p.Rejected = true
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":         "ok",
			"transactionHash": fmt.Sprintf("0x%064x", id),
			"blockNumber":     42,
		})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// setupCLI points the CLI at a fake backend and a fresh session database.
func setupCLI(t *testing.T) *fakeBackend {
	t.Helper()
	b := newFakeBackend(t)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	t.Setenv("RECICLA_API_URL", srv.URL)
	t.Setenv("RECICLA_STORE_URL", "sqlite://"+filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("RECICLA_STORE_SECRET", "test-secret")
	t.Setenv("RECICLA_RATE_LIMIT_RPS", "0")
	t.Setenv("RECICLA_PASSWORD", "")
	t.Setenv("RECICLA_VALIDATOR_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
	return b
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"recicla"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_NoArgs(t *testing.T) {
	code, _, stderr := run()
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "USAGE")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := run("frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Unknown command: frobnicate")
}

func TestRun_Help(t *testing.T) {
	code, stdout, _ := run("help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "pending")
	assert.Contains(t, stdout, "RECICLA_VALIDATOR_KEY")
}

func TestLogin_UsageErrors(t *testing.T) {
	setupCLI(t)

	code, _, _ := run("login")
	assert.Equal(t, exitUsage, code)

	code, _, _ = run("login", "-bogus")
	assert.Equal(t, exitUsage, code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	setupCLI(t)

	code, _, stderr := run("login", "-username", "ong1", "-password", "wrong")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "invalid credentials")

	code, _, _ = run("whoami")
	assert.Equal(t, exitFailure, code)
}

func TestValidationFlow(t *testing.T) {
	b := setupCLI(t)

	code, stdout, stderr := run("login", "-username", "ong1", "-password", "secret")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Logged in as ong1 (ONG)")
	assert.Contains(t, stdout, "Home: /ong/validacion-ong")

	code, stdout, _ = run("whoami")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "ong1")

	code, stdout, stderr = run("pending")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Page 1 of 2 (8 pending)")
	assert.Contains(t, stdout, "Plástico")
	assert.Contains(t, stdout, "https://")

	code, stdout, _ = run("pending", "-page", "2", "-json")
	require.Equal(t, exitOK, code)
	var page struct {
		Page  int                       `json:"page"`
		Items []ledger.ActivityProposal `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &page))
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 2)

	t.Setenv("RECICLA_VALIDATOR_KEY", "0xdeadbeef")
	code, stdout, stderr = run("approve", "-id", "1", "-wallet", testWallet)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Proposal 1 approved (tx 0x")
	assert.Contains(t, stdout, "no longer pending")

	code, stdout, _ = run("pending")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Page 1 of 2 (7 pending)")

	code, stdout, stderr = run("reject", "-id", "3", "-wallet", testWallet, "-reason", "foto borrosa")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Proposal 3 rejected")
	assert.Contains(t, stdout, "no longer pending")

	code, _, stderr = run("approve", "-id", "3", "-wallet", testWallet)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "already REJECTED")

	b.mu.Lock()
	assert.True(t, strings.HasPrefix(b.auths[len(b.auths)-1], "Bearer "), "ledger calls carry the session token")
	seen := len(b.auths)
	b.mu.Unlock()

	code, stdout, _ = run("logout")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Logged out")

	code, _, stderr = run("pending")
	assert.Equal(t, exitDenied, code)
	assert.Contains(t, stderr, "redirect to /login")

	code, _, _ = run("balance", "-wallet", testWallet)
	require.Equal(t, exitOK, code)
	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.auths, seen+1)
	assert.Empty(t, b.auths[seen], "no bearer header after logout")
}

func TestDecision_Validation(t *testing.T) {
	setupCLI(t)
	code, _, stderr := run("login", "-username", "ong1", "-password", "secret")
	require.Equal(t, exitOK, code, stderr)

	code, _, _ = run("approve", "-wallet", testWallet)
	assert.Equal(t, exitUsage, code, "missing id")

	code, _, _ = run("approve", "-id", "1", "-wallet", "0x123")
	assert.Equal(t, exitUsage, code, "malformed wallet")

	code, _, stderr = run("approve", "-id", "1", "-wallet", testWallet)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "RECICLA_VALIDATOR_KEY")

	t.Setenv("RECICLA_VALIDATOR_KEY", "0xdeadbeef")
	code, _, stderr = run("reject", "-id", "1", "-wallet", testWallet)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "-reason")

	code, _, stderr = run("approve", "-id", "99", "-wallet", testWallet)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Actividad no encontrada")
}

func TestParticipantDenied(t *testing.T) {
	setupCLI(t)

	code, stdout, stderr := run("login", "-username", "maria", "-password", "secret")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Home: /user/ver-historial")

	code, _, stderr = run("pending")
	assert.Equal(t, exitDenied, code)
	assert.Contains(t, stderr, "ONG session required")

	t.Setenv("RECICLA_VALIDATOR_KEY", "0xdeadbeef")
	code, _, _ = run("approve", "-id", "1", "-wallet", testWallet)
	assert.Equal(t, exitDenied, code)
}

func TestEvidence(t *testing.T) {
	setupCLI(t)

	code, stdout, _ := run("evidence", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(stdout), "/QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"))

	code, _, _ = run("evidence", "not-a-cid")
	assert.Equal(t, exitFailure, code)

	code, _, _ = run("evidence")
	assert.Equal(t, exitUsage, code)

	code, _, stderr := run("login", "-username", "ong1", "-password", "secret")
	require.Equal(t, exitOK, code, stderr)

	code, _, stderr = run("evidence", "-id", "2")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "no viewable evidence")
}

func TestBalance(t *testing.T) {
	setupCLI(t)

	code, _, _ := run("balance", "-wallet", "nope")
	assert.Equal(t, exitUsage, code)

	code, stdout, stderr := run("balance", "-wallet", testWallet)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "150\n", stdout)
}

func TestNetwork(t *testing.T) {
	t.Setenv("RECICLA_NETWORK", "hardhat")
	t.Setenv("RECICLA_NETWORKS_FILE", "")

	code, stdout, _ := run("network")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "0x7a69 (31337)")

	code, _, _ = run("network", "-chain", "31337")
	assert.Equal(t, exitOK, code)

	code, _, stderr := run("network", "-chain", "0x13882")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Wrong network")
}
