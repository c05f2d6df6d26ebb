package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/treason-stats/internal/api"
	"github.com/mcoot/treason-stats/internal/config"
	"github.com/mcoot/treason-stats/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "treason-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/treason")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

// run executes the CLI as the player whose id is remembered in idFile
func (r *cliRunner) run(idFile string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--id-file", idFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "TREASON_PLAYER_ID=")
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.App
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	// Create application on a throwaway SQLite database
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	app, err := factory.New(factory.FromEnv(config.Config{
		StorageType: config.StorageTypeSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "treason.db"),
	}, logger))
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		Gate:            app.Gate,
		StorageType:     app.StorageType,
		IdentityService: app.IdentityService,
		RecorderService: app.RecorderService,
		RankingService:  app.RankingService,
	})
	server := api.NewServer(router, api.DefaultServerConfig(), logger)

	// Start server
	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		app:  app,
		addr: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.IdentityService.Drain(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type registrationResponse struct {
	PlayerID  string `json:"playerId"`
	Created   bool   `json:"created"`
	Persisted bool   `json:"persisted"`
	Renamed   bool   `json:"renamed"`
}

type playerSummary struct {
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

type winsResponse struct {
	PlayerID string `json:"playerId"`
	Wins     int    `json:"wins"`
}

type rankingEntry struct {
	PlayerName string `json:"playerName"`
	Wins       int    `json:"wins"`
}

type gameRecord struct {
	ID         string   `json:"id"`
	Players    int      `json:"players"`
	OnlyHumans bool     `json:"onlyHumans"`
	PlayerRank []string `json:"playerRank"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func decode[T any](t *testing.T, output string) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal([]byte(output), &out), "output: %s", output)
	return out
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run(filepath.Join(t.TempDir(), "id"), "health")
	require.NoError(t, err, "output: %s", output)

	resp := decode[healthResponse](t, output)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sqlite", resp.Storage)
}

func TestCLI_PlayerRemembersID(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	idFile := filepath.Join(t.TempDir(), "alice")

	// First registration issues an id
	output, err := cli.run(idFile, "player", "register", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	first := decode[registrationResponse](t, output)
	assert.True(t, first.Created)
	assert.True(t, first.Persisted)

	saved, err := os.ReadFile(idFile)
	require.NoError(t, err)
	assert.Equal(t, first.PlayerID, string(saved))

	// Registering again reuses the remembered id
	output, err = cli.run(idFile, "player", "register", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	again := decode[registrationResponse](t, output)
	assert.Equal(t, first.PlayerID, again.PlayerID)
	assert.False(t, again.Created)

	// A new name keeps the id and eventually shows in the directory
	output, err = cli.run(idFile, "player", "register", "--name", "Alicia")
	require.NoError(t, err, "output: %s", output)
	renamed := decode[registrationResponse](t, output)
	assert.Equal(t, first.PlayerID, renamed.PlayerID)
	assert.True(t, renamed.Renamed)

	require.NoError(t, ts.app.IdentityService.Drain(context.Background()))
	output, err = cli.run(idFile, "player", "list")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, []playerSummary{{PlayerName: "Alicia", PlayerID: first.PlayerID}}, decode[[]playerSummary](t, output))
}

func TestCLI_GamesAndRankings(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)
	aliceFile := filepath.Join(t.TempDir(), "alice")
	bobFile := filepath.Join(t.TempDir(), "bob")

	output, err := cli.run(aliceFile, "player", "register", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	alice := decode[registrationResponse](t, output).PlayerID

	output, err = cli.run(bobFile, "player", "register", "--name", "Bob")
	require.NoError(t, err, "output: %s", output)
	bob := decode[registrationResponse](t, output).PlayerID
	require.NotEqual(t, alice, bob)

	// Alice wins a human game, Bob wins twice with a bot seated
	output, err = cli.run(aliceFile, "game", "record", "--rank", alice+","+bob, "--moves", "12", "--strict")
	require.NoError(t, err, "output: %s", output)
	for _iter := 0; _iter < 2; _iter++ {
		output, err = cli.run(bobFile, "game", "record", "--rank", bob+","+alice, "--bots", "1")
		require.NoError(t, err, "output: %s", output)
	}

	// Wins default to the remembered player
	output, err = cli.run(aliceFile, "player", "wins")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, winsResponse{PlayerID: alice, Wins: 1}, decode[winsResponse](t, output))

	output, err = cli.run(aliceFile, "player", "wins", bob)
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, 2, decode[winsResponse](t, output).Wins)

	output, err = cli.run(aliceFile, "player", "wins", bob, "--human-only")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, 0, decode[winsResponse](t, output).Wins)

	// Rankings come back sorted by wins
	output, err = cli.run(aliceFile, "rankings")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, []rankingEntry{
		{PlayerName: "Bob", Wins: 2},
		{PlayerName: "Alice", Wins: 1},
	}, decode[[]rankingEntry](t, output))

	output, err = cli.run(aliceFile, "game", "list")
	require.NoError(t, err, "output: %s", output)
	games := decode[[]gameRecord](t, output)
	require.Len(t, games, 3)
	for _, g := range games {
		humanGame := g.PlayerRank[0] == alice
		assert.Equal(t, humanGame, g.OnlyHumans)
		if humanGame {
			assert.Equal(t, 2, g.Players)
		} else {
			assert.Equal(t, 3, g.Players)
		}
	}
}

func TestCLI_StrictRejectsBadGame(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run(filepath.Join(t.TempDir(), "id"), "game", "record", "--rank", "a,a", "--strict")
	require.Error(t, err)
	assert.Contains(t, output, "INVALID_GAME_STATS")
}

func TestCLI_WinsWithoutID(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run(filepath.Join(t.TempDir(), "id"), "player", "wins")
	require.Error(t, err)
	assert.Contains(t, output, "player register")
}
