package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrina-labs/vitrina/internal/auth"
	"github.com/vitrina-labs/vitrina/internal/ingest"
	"github.com/vitrina-labs/vitrina/internal/mcp"
	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/ratelimit"
	"github.com/vitrina-labs/vitrina/internal/server"
	catalogsvc "github.com/vitrina-labs/vitrina/internal/service/catalog"
	"github.com/vitrina-labs/vitrina/internal/storage"
	"github.com/vitrina-labs/vitrina/internal/testutil"
)

const (
	adminEmail    = "admin@vitrina.test"
	adminPassword = "admin-password-123"
	testPassword  = "correct horse battery"
)

var (
	testDB     *storage.DB
	testBuffer *ingest.Buffer
	testSrv    *httptest.Server
	adminToken string
)

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	code := setupAndRun(m, tc)
	tc.Terminate()
	os.Exit(code)
}

func setupAndRun(m *testing.M, tc *testutil.TestContainer) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := testutil.TestLogger()

	var err error
	testDB, err = tc.NewTestDB(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server test: create DB: %v\n", err)
		return 1
	}
	defer testDB.Close()

	jwtMgr, err := auth.NewJWTManager("", "", 24*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server test: jwt manager: %v\n", err)
		return 1
	}

	testBuffer = ingest.NewBuffer(testDB, logger, 1000, 50*time.Millisecond)
	testBuffer.Start(ctx)
	defer func() {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer drainCancel()
		testBuffer.Drain(drainCtx)
	}()

	catalogSvc := catalogsvc.NewService(testDB, 6)
	mcpSrv := mcp.New(catalogSvc, "test", logger)

	srv := server.New(server.ServerConfig{
		DB:                  testDB,
		JWTMgr:              jwtMgr,
		CatalogSvc:          catalogSvc,
		Buffer:              testBuffer,
		Logger:              logger,
		MCPServer:           mcpSrv.MCPServer(),
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
		OpenAPISpec:         []byte("openapi: 3.0.3\ninfo:\n  title: Vitrina\n"),
	})

	if err := srv.Handlers().SeedAdmin(ctx, adminEmail, adminPassword); err != nil {
		fmt.Fprintf(os.Stderr, "server test: seed admin: %v\n", err)
		return 1
	}

	testSrv = httptest.NewServer(srv.Handler())
	defer testSrv.Close()

	adminToken = login(adminEmail, adminPassword)
	if adminToken == "" {
		fmt.Fprintf(os.Stderr, "server test: admin login failed\n")
		return 1
	}

	return m.Run()
}

func doJSON(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, testSrv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

// decodeData unmarshals the "data" field of the standard response envelope.
func decodeData(t *testing.T, raw []byte, target any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	return envelope.Error.Code
}

// login fetches a token outside of a test (for TestMain). Returns "" on failure.
func login(email, password string) string {
	data, _ := json.Marshal(model.AuthTokenRequest{Email: email, Password: password})
	resp, err := http.Post(testSrv.URL+"/auth/token", "application/json", bytes.NewReader(data))
	if err != nil || resp.StatusCode != http.StatusOK {
		return ""
	}
	defer resp.Body.Close()

	var envelope struct {
		Data model.AuthTokenResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return ""
	}
	return envelope.Data.Token
}

// signupUser registers a fresh client profile and returns its token and profile.
func signupUser(t *testing.T) (string, model.Profile) {
	t.Helper()
	resp, raw := doJSON(t, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()),
		Password: testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var created model.AuthTokenResponse
	decodeData(t, raw, &created)
	return created.Token, created.Profile
}

// signupCreator registers a client, promotes it to creator via the admin
// role endpoint, and returns a fresh token carrying the creator role.
func signupCreator(t *testing.T) (string, model.Profile) {
	t.Helper()
	_, profile := signupUser(t)

	resp, raw := doJSON(t, http.MethodPatch,
		"/v1/profiles/"+profile.ID.String()+"/role", adminToken,
		model.UpdateProfileRoleRequest{Role: model.RoleCreator})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	token := login(profile.Email, testPassword)
	require.NotEmpty(t, token)
	profile.Role = model.RoleCreator
	return token, profile
}

func createAgent(t *testing.T, token string, req model.CreateAgentRequest) model.Agent {
	t.Helper()
	resp, raw := doJSON(t, http.MethodPost, "/v1/agents", token, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var agent model.Agent
	decodeData(t, raw, &agent)
	return agent
}

func TestHealth(t *testing.T) {
	resp, raw := doJSON(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health model.HealthResponse
	decodeData(t, raw, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "connected", health.Postgres)
	assert.Equal(t, "test", health.Version)
}

func TestOpenAPISpec(t *testing.T) {
	resp, raw := doJSON(t, http.MethodGet, "/openapi.yaml", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(raw), "openapi:")
}

func TestSignupFlow(t *testing.T) {
	email := fmt.Sprintf("%s@example.com", uuid.NewString())

	resp, raw := doJSON(t, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Email:    email,
		Password: testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var created model.AuthTokenResponse
	decodeData(t, raw, &created)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, model.RoleClient, created.Profile.Role)
	assert.Equal(t, email, created.Profile.Email)

	// Duplicate email is a conflict.
	resp, raw = doJSON(t, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Email:    email,
		Password: testPassword,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.ErrCodeConflict, errorCode(t, raw))
}

func TestSignupValidation(t *testing.T) {
	resp, raw := doJSON(t, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Email:    "not-an-email",
		Password: testPassword,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))

	resp, _ = doJSON(t, http.MethodPost, "/auth/signup", "", model.SignupRequest{
		Email:    "short@example.com",
		Password: "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenFlow(t *testing.T) {
	_, profile := signupUser(t)

	token := login(profile.Email, testPassword)
	assert.NotEmpty(t, token)

	resp, raw := doJSON(t, http.MethodPost, "/auth/token", "", model.AuthTokenRequest{
		Email:    profile.Email,
		Password: "wrong password here",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, model.ErrCodeUnauthorized, errorCode(t, raw))

	// Unknown email gets the same answer as a wrong password.
	resp, raw = doJSON(t, http.MethodPost, "/auth/token", "", model.AuthTokenRequest{
		Email:    "ghost@example.com",
		Password: testPassword,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, model.ErrCodeUnauthorized, errorCode(t, raw))
}

func TestDashboardRequiresAuth(t *testing.T) {
	resp, raw := doJSON(t, http.MethodGet, "/v1/dashboard", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, model.ErrCodeUnauthorized, errorCode(t, raw))

	token, profile := signupUser(t)
	resp, raw = doJSON(t, http.MethodGet, "/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var view catalogsvc.DashboardView
	decodeData(t, raw, &view)
	assert.Equal(t, profile.ID, view.Profile.ID)
	assert.Empty(t, view.Agents)
	assert.Equal(t, 0, view.Metrics.TotalExecutions)
}

func TestCreateAgentRequiresCreatorRole(t *testing.T) {
	clientToken, _ := signupUser(t)

	resp, raw := doJSON(t, http.MethodPost, "/v1/agents", clientToken, model.CreateAgentRequest{
		Name:        "Forbidden",
		Description: "clients cannot create agents",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, model.ErrCodeForbidden, errorCode(t, raw))
}

func TestUpdateProfileRole(t *testing.T) {
	userToken, user := signupUser(t)

	// Non-admins cannot change roles, not even their own.
	resp, raw := doJSON(t, http.MethodPatch,
		"/v1/profiles/"+user.ID.String()+"/role", userToken,
		model.UpdateProfileRoleRequest{Role: model.RoleCreator})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, model.ErrCodeForbidden, errorCode(t, raw))

	// Admin promotes the client to creator.
	resp, raw = doJSON(t, http.MethodPatch,
		"/v1/profiles/"+user.ID.String()+"/role", adminToken,
		model.UpdateProfileRoleRequest{Role: model.RoleCreator})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var promoted model.Profile
	decodeData(t, raw, &promoted)
	assert.Equal(t, model.RoleCreator, promoted.Role)

	// A fresh token now carries the creator role.
	creatorToken := login(user.Email, testPassword)
	require.NotEmpty(t, creatorToken)
	resp, raw = doJSON(t, http.MethodPost, "/v1/agents", creatorToken, model.CreateAgentRequest{
		Name:        "Promoted Creator Agent",
		Description: "created right after promotion",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	// Unknown role value.
	resp, raw = doJSON(t, http.MethodPatch,
		"/v1/profiles/"+user.ID.String()+"/role", adminToken,
		map[string]string{"role": "superuser"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))

	// Unknown profile.
	resp, raw = doJSON(t, http.MethodPatch,
		"/v1/profiles/"+uuid.NewString()+"/role", adminToken,
		model.UpdateProfileRoleRequest{Role: model.RoleClient})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, errorCode(t, raw))
}

func TestAdminCannotDemoteSelf(t *testing.T) {
	admin, err := testDB.GetProfileByEmail(context.Background(), adminEmail)
	require.NoError(t, err)

	resp, raw := doJSON(t, http.MethodPatch,
		"/v1/profiles/"+admin.ID.String()+"/role", adminToken,
		model.UpdateProfileRoleRequest{Role: model.RoleClient})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, model.ErrCodeForbidden, errorCode(t, raw))
}

func TestAgentLifecycle(t *testing.T) {
	creatorToken, creator := signupCreator(t)

	cats, err := testDB.ListCategories(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, cats)

	prompt := "You draft emails."
	agent := createAgent(t, creatorToken, model.CreateAgentRequest{
		Name:         "Lifecycle Agent",
		Description:  "an agent that gets published",
		Tags:         []string{"email"},
		SystemPrompt: &prompt,
		CategoryIDs:  []uuid.UUID{cats[0].ID},
	})
	assert.Equal(t, model.StatusDraft, agent.Status)
	assert.Equal(t, 1, agent.Version)
	assert.Equal(t, creator.ID, agent.CreatorID)

	// Draft agents are invisible in the public catalog.
	resp, raw := doJSON(t, http.MethodGet, "/v1/catalog/agents?q=lifecycle", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view catalogsvc.ExploreView
	decodeData(t, raw, &view)
	assert.Empty(t, view.Agents)

	// Publish with a rename; the version bumps.
	newName := "Lifecycle Agent v2"
	published := model.StatusPublished
	resp, raw = doJSON(t, http.MethodPatch, "/v1/agents/"+agent.ID.String(), creatorToken, model.UpdateAgentRequest{
		Name:   &newName,
		Status: &published,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var updated model.Agent
	decodeData(t, raw, &updated)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, model.StatusPublished, updated.Status)
	assert.Equal(t, 2, updated.Version)

	// Now it shows up in the catalog, annotated with its categories.
	resp, raw = doJSON(t, http.MethodGet, "/v1/catalog/agents?q=lifecycle", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, raw, &view)
	require.Len(t, view.Agents, 1)
	assert.Equal(t, agent.ID, view.Agents[0].ID)
	assert.Equal(t, []uuid.UUID{cats[0].ID}, view.Agents[0].CategoryIDs)
	assert.NotEmpty(t, view.Categories)

	// Detail view joins the creator and category names.
	resp, raw = doJSON(t, http.MethodGet, "/v1/catalog/agents/"+agent.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail model.AgentDetail
	decodeData(t, raw, &detail)
	assert.Equal(t, newName, detail.Name)
	require.Len(t, detail.Categories, 1)
	assert.Equal(t, cats[0].Name, detail.Categories[0].Name)
}

func TestUpdateAgentOwnership(t *testing.T) {
	ownerToken, _ := signupCreator(t)
	otherToken, _ := signupCreator(t)

	agent := createAgent(t, ownerToken, model.CreateAgentRequest{
		Name:        "Owned Agent",
		Description: "only the owner may edit",
	})

	name := "Hijacked"
	resp, raw := doJSON(t, http.MethodPatch, "/v1/agents/"+agent.ID.String(), otherToken, model.UpdateAgentRequest{
		Name: &name,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, model.ErrCodeForbidden, errorCode(t, raw))

	// Admins may edit anyone's agent.
	resp, _ = doJSON(t, http.MethodPatch, "/v1/agents/"+agent.ID.String(), adminToken, model.UpdateAgentRequest{
		Name: &name,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateAgentNotFound(t *testing.T) {
	creatorToken, _ := signupCreator(t)
	name := "Ghost"

	resp, raw := doJSON(t, http.MethodPatch, "/v1/agents/"+uuid.NewString(), creatorToken, model.UpdateAgentRequest{
		Name: &name,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, errorCode(t, raw))
}

func TestSetAgentCategories(t *testing.T) {
	creatorToken, _ := signupCreator(t)
	agent := createAgent(t, creatorToken, model.CreateAgentRequest{
		Name:        "Categorizable",
		Description: "gets recategorized",
	})

	cats, err := testDB.ListCategories(context.Background())
	require.NoError(t, err)
	require.True(t, len(cats) >= 2)

	resp, _ := doJSON(t, http.MethodPut, "/v1/agents/"+agent.ID.String()+"/categories", creatorToken, model.SetAgentCategoriesRequest{
		CategoryIDs: []uuid.UUID{cats[0].ID, cats[1].ID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Unknown category ids are a client error, not a 500.
	resp, raw := doJSON(t, http.MethodPut, "/v1/agents/"+agent.ID.String()+"/categories", creatorToken, model.SetAgentCategoriesRequest{
		CategoryIDs: []uuid.UUID{uuid.New()},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))
}

func TestCloneAgent(t *testing.T) {
	ownerToken, _ := signupCreator(t)
	clonerToken, cloner := signupCreator(t)

	agent := createAgent(t, ownerToken, model.CreateAgentRequest{
		Name:        "Clone Source",
		Description: "a published agent others can copy",
		Status:      model.StatusPublished,
	})

	resp, raw := doJSON(t, http.MethodPost, "/v1/agents/"+agent.ID.String()+"/clone", clonerToken, model.CloneAgentRequest{})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var clone model.Agent
	decodeData(t, raw, &clone)
	assert.Equal(t, "Clone Source (copy)", clone.Name)
	assert.Equal(t, model.StatusDraft, clone.Status)
	assert.Equal(t, 1, clone.Version)
	assert.Equal(t, cloner.ID, clone.CreatorID)
	require.NotNil(t, clone.ParentAgentID)
	assert.Equal(t, agent.ID, *clone.ParentAgentID)
}

func TestCloneDraftForbiddenForOthers(t *testing.T) {
	ownerToken, _ := signupCreator(t)
	otherToken, _ := signupCreator(t)

	draft := createAgent(t, ownerToken, model.CreateAgentRequest{
		Name:        "Private Draft",
		Description: "not yet published",
	})

	resp, raw := doJSON(t, http.MethodPost, "/v1/agents/"+draft.ID.String()+"/clone", otherToken, model.CloneAgentRequest{})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, model.ErrCodeForbidden, errorCode(t, raw))

	// The owner can still clone their own draft, with a custom name.
	name := "Draft Fork"
	resp, raw = doJSON(t, http.MethodPost, "/v1/agents/"+draft.ID.String()+"/clone", ownerToken, model.CloneAgentRequest{Name: &name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var clone model.Agent
	decodeData(t, raw, &clone)
	assert.Equal(t, name, clone.Name)
}

func TestExploreFiltersAndValidation(t *testing.T) {
	resp, raw := doJSON(t, http.MethodGet, "/v1/catalog/agents?type=bogus", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))

	resp, _ = doJSON(t, http.MethodGet, "/v1/catalog/agents?type=profession", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFeaturedCap(t *testing.T) {
	resp, raw := doJSON(t, http.MethodGet, "/v1/catalog/featured", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var agents []model.CatalogAgent
	decodeData(t, raw, &agents)
	assert.LessOrEqual(t, len(agents), 6)
	for _, a := range agents {
		assert.Equal(t, model.StatusPublished, a.Status)
	}
}

func TestListCategories(t *testing.T) {
	resp, raw := doJSON(t, http.MethodGet, "/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cats []model.Category
	decodeData(t, raw, &cats)
	assert.NotEmpty(t, cats)
}

func TestAgentDetailErrors(t *testing.T) {
	resp, raw := doJSON(t, http.MethodGet, "/v1/catalog/agents/not-a-uuid", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))

	resp, raw = doJSON(t, http.MethodGet, "/v1/catalog/agents/"+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, errorCode(t, raw))
}

func TestRecordExecution(t *testing.T) {
	creatorToken, creator := signupCreator(t)
	clientToken, client := signupUser(t)

	agent := createAgent(t, creatorToken, model.CreateAgentRequest{
		Name:        "Executable Agent",
		Description: "records executions",
		Status:      model.StatusPublished,
	})

	cost := 0.25
	rating := 5.0
	resp, raw := doJSON(t, http.MethodPost, "/v1/agents/"+agent.ID.String()+"/executions", clientToken, model.RecordExecutionRequest{
		EstimatedCost:      &cost,
		SatisfactionRating: &rating,
		InputData:          map[string]any{"topic": "renewals"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))

	var queued model.AgentExecution
	decodeData(t, raw, &queued)
	assert.Equal(t, agent.ID, queued.AgentID)
	assert.NotEqual(t, uuid.Nil, queued.ID)

	// Unknown agent.
	resp, raw = doJSON(t, http.MethodPost, "/v1/agents/"+uuid.NewString()+"/executions", clientToken, model.RecordExecutionRequest{})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, errorCode(t, raw))

	// Out-of-range rating.
	bad := 9.0
	resp, raw = doJSON(t, http.MethodPost, "/v1/agents/"+agent.ID.String()+"/executions", clientToken, model.RecordExecutionRequest{
		SatisfactionRating: &bad,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, errorCode(t, raw))

	// The buffered write lands and surfaces on the dashboard of the user who
	// ran the agent.
	require.Eventually(t, func() bool {
		execs, err := testDB.ListExecutionsByAgent(context.Background(), agent.ID, 0)
		return err == nil && len(execs) == 1
	}, 5*time.Second, 20*time.Millisecond)

	resp, raw = doJSON(t, http.MethodGet, "/v1/dashboard", clientToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view catalogsvc.DashboardView
	decodeData(t, raw, &view)
	assert.Equal(t, client.ID, view.Profile.ID)
	assert.Equal(t, 1, view.Metrics.TotalExecutions)
	assert.InDelta(t, 0.25, view.Metrics.TotalCost, 1e-9)
	assert.InDelta(t, 5.0, view.Metrics.AvgSatisfaction, 1e-9)

	// Owning the agent does not attribute the run to the creator.
	resp, raw = doJSON(t, http.MethodGet, "/v1/dashboard", creatorToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var creatorView catalogsvc.DashboardView
	decodeData(t, raw, &creatorView)
	assert.Equal(t, creator.ID, creatorView.Profile.ID)
	assert.Zero(t, creatorView.Metrics.TotalExecutions)
}

func TestMCPRequiresAuth(t *testing.T) {
	resp, raw := doJSON(t, http.MethodPost, "/mcp", "", map[string]any{})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, model.ErrCodeUnauthorized, errorCode(t, raw))
}

func TestRejectsOversizedBody(t *testing.T) {
	big := bytes.Repeat([]byte("a"), 2<<20)
	req, err := http.NewRequest(http.MethodPost, testSrv.URL+"/auth/signup", bytes.NewReader(big))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRateLimitOnAuthEndpoints(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0.01, 2)
	defer limiter.Close()

	logger := testutil.TestLogger()
	jwtMgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	srv := server.New(server.ServerConfig{
		DB:                  testDB,
		JWTMgr:              jwtMgr,
		CatalogSvc:          catalogsvc.NewService(testDB, 6),
		Buffer:              testBuffer,
		Logger:              logger,
		Limiter:             limiter,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
	})
	limited := httptest.NewServer(srv.Handler())
	defer limited.Close()

	body, _ := json.Marshal(model.AuthTokenRequest{Email: "ghost@example.com", Password: testPassword})
	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Post(limited.URL+"/auth/token", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, http.StatusUnauthorized, statuses[0])
	assert.Equal(t, http.StatusUnauthorized, statuses[1])
	assert.Equal(t, http.StatusTooManyRequests, statuses[2])
}
