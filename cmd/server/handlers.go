package main

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openfleet/fleetmeter/internal/assessment"
	"github.com/openfleet/fleetmeter/internal/cache"
	"github.com/openfleet/fleetmeter/internal/config"
	"github.com/openfleet/fleetmeter/internal/database"
	"github.com/openfleet/fleetmeter/internal/errors"
	"github.com/openfleet/fleetmeter/internal/importer"
	"github.com/openfleet/fleetmeter/internal/middleware"
	"github.com/openfleet/fleetmeter/internal/monitoring"
	"github.com/openfleet/fleetmeter/internal/ranking"
	"github.com/openfleet/fleetmeter/internal/ratelimit"
	"github.com/openfleet/fleetmeter/internal/retention"
	"github.com/openfleet/fleetmeter/internal/risk"
	"github.com/openfleet/fleetmeter/internal/security"
	"github.com/openfleet/fleetmeter/internal/types"
)

// server bundles the services the route handlers need.
type server struct {
	cfg       *config.Config
	db        *database.DB
	repo      *database.Repository
	operators *database.OperatorService
	risk      *risk.Service
	ranking   *ranking.Service
	retention *retention.Service
	importer  *importer.Service
	alerts    *monitoring.AlertManager
	metrics   *monitoring.Metrics
	prom      *monitoring.PromCollector
	logger    *monitoring.Logger
	cache     *cache.Cache
	limiter   *ratelimit.RateLimiter
	compress  *middleware.Compressor
	sec       *security.SecurityMiddleware
}

func (s *server) abort(c *gin.Context, err error) {
	appErr := errors.ToAppError(err)
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
}

func (s *server) companyID(c *gin.Context) string {
	return c.GetString("company_id")
}

// handleIssueToken exchanges a registered operator ID for a session token.
// The endpoint is meant for the trusted dashboard backend, not end users.
func (s *server) handleIssueToken(c *gin.Context) {
	var req struct {
		OperatorID string `json:"operator_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		s.abort(c, errors.NewValidationError("operator_id is required"))
		return
	}

	op, err := s.repo.GetOperator(c.Request.Context(), req.OperatorID)
	if err != nil {
		s.abort(c, err)
		return
	}

	token, err := s.operators.GenerateSessionToken(op)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"operator_id": op.OperatorID,
		"role":        op.Role,
		"company_id":  op.CompanyID,
	})
}

// handleRegisterOperator registers a new operator under the caller's company.
func (s *server) handleRegisterOperator(c *gin.Context) {
	var req struct {
		OperatorID string `json:"operator_id" binding:"required"`
		Name       string `json:"name" binding:"required"`
		Email      string `json:"email" binding:"required"`
		Role       string `json:"role" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		s.abort(c, errors.NewValidationError("operator_id, name, email and role are required"))
		return
	}

	op, err := s.operators.Register(c.Request.Context(),
		req.OperatorID, req.Name, req.Email, types.Role(req.Role), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, op)
}

func (s *server) handleListOperators(c *gin.Context) {
	operators, err := s.repo.ListOperators(c.Request.Context(), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operators": operators, "total": len(operators)})
}

// handleAnalyze runs the risk engine for one driver and persists the result.
func (s *server) handleAnalyze(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	companyID := s.companyID(c)
	driverID := c.GetString("driver_id")

	op, err := s.repo.GetOperator(ctx, driverID)
	if err != nil || op.CompanyID != companyID {
		s.abort(c, errors.NewNotFoundError("driver", driverID))
		return
	}

	_, cacheHit := s.risk.Cached(driverID)

	a, err := s.risk.AnalyzeDriver(ctx, companyID, driverID)
	if err != nil {
		s.abort(c, err)
		return
	}

	s.ranking.Invalidate(companyID)
	s.alerts.EvaluateDriver(ctx, companyID, driverID, op.Name, a.Score, string(a.Level))

	s.metrics.IncrementAnalyses()
	s.prom.ObserveAnalysis(string(a.Level), a.Score)
	s.logger.AnalysisLogger(driverID, a.EventCount, a.Score, string(a.Level), time.Since(start), cacheHit)

	c.JSON(http.StatusOK, a)
}

// handleFleetAnalysis recomputes every driver in the company and returns the
// aggregated fleet score.
func (s *server) handleFleetAnalysis(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := s.companyID(c)

	assessments, fleetScore, err := s.risk.AnalyzeCompany(ctx, companyID)
	if err != nil {
		s.abort(c, err)
		return
	}

	events, err := s.repo.EventsByCompany(ctx, companyID)
	if err != nil {
		s.abort(c, err)
		return
	}

	s.ranking.Invalidate(companyID)
	for _, a := range assessments {
		s.metrics.IncrementAnalyses()
		s.prom.ObserveAnalysis(string(a.Level), a.Score)
		s.alerts.EvaluateDriver(ctx, companyID, a.DriverID, "", a.Score, string(a.Level))
	}

	c.JSON(http.StatusOK, gin.H{
		"company_id":   companyID,
		"fleet_score":  fleetScore,
		"drivers":      assessments,
		"total":        len(assessments),
		"event_counts": risk.EventTypeCounts(events),
	})
}

// handleGetAssessment returns the last persisted assessment for a driver.
func (s *server) handleGetAssessment(c *gin.Context) {
	driverID := c.Param("driverID")

	a, err := s.repo.GetAssessment(c.Request.Context(), driverID)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

func (s *server) handleRanking(c *gin.Context) {
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	response, err := s.ranking.GetRanking(c.Request.Context(), s.companyID(c), limit)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// invalidateAfterImport drops caches that may now serve stale analyses.
func (s *server) invalidateAfterImport(companyID string, driverIDs []string) {
	s.cache.Clear()
	s.ranking.Invalidate(companyID)
	for _, id := range driverIDs {
		s.risk.InvalidateCache(id)
	}
}

func (s *server) handleImportTelemetry(c *gin.Context) {
	var rows []importer.TelemetryRow
	if err := c.BindJSON(&rows); err != nil {
		s.abort(c, errors.NewValidationError("request body must be a JSON array of telemetry rows"))
		return
	}

	result, err := s.importer.ImportTelemetry(c.Request.Context(), s.companyID(c), rows)
	if err != nil {
		s.abort(c, err)
		return
	}

	if result.Accepted > 0 {
		seen := make(map[string]bool)
		drivers := make([]string, 0)
		for _, row := range rows {
			if !seen[row.OperatorID] {
				seen[row.OperatorID] = true
				drivers = append(drivers, row.OperatorID)
			}
		}
		s.invalidateAfterImport(s.companyID(c), drivers)
	}

	c.JSON(http.StatusOK, result)
}

func (s *server) handleImportQuestions(c *gin.Context) {
	var rows []importer.QuestionRow
	if err := c.BindJSON(&rows); err != nil {
		s.abort(c, errors.NewValidationError("request body must be a JSON array of questions"))
		return
	}

	result, err := s.importer.ImportKnowledgeQuestions(c.Request.Context(), s.companyID(c), rows)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *server) handleImportScenarios(c *gin.Context) {
	var rows []importer.ScenarioRow
	if err := c.BindJSON(&rows); err != nil {
		s.abort(c, errors.NewValidationError("request body must be a JSON array of scenarios"))
		return
	}

	result, err := s.importer.ImportRiskScenarios(c.Request.Context(), s.companyID(c), rows)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *server) handleImportMaintenance(c *gin.Context) {
	var rows []importer.MaintenanceRow
	if err := c.BindJSON(&rows); err != nil {
		s.abort(c, errors.NewValidationError("request body must be a JSON array of maintenance questions"))
		return
	}

	result, err := s.importer.ImportMaintenanceQuestions(c.Request.Context(), s.companyID(c), rows)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleFleetExport returns the company's telemetry with pseudonymized
// driver IDs, for handing to insurers or auditors outside the fleet.
func (s *server) handleFleetExport(c *gin.Context) {
	companyID := s.companyID(c)

	events, err := s.repo.EventsByCompany(c.Request.Context(), companyID)
	if err != nil {
		s.abort(c, err)
		return
	}

	rows := make([]gin.H, 0, len(events))
	for _, e := range events {
		rows = append(rows, gin.H{
			"driver":     s.retention.AnonymizeDriverID(e.OperatorID),
			"event_type": e.EventType,
			"timestamp":  e.Timestamp,
			"latitude":   e.Latitude,
			"longitude":  e.Longitude,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"company_id": companyID,
		"events":     rows,
		"total":      len(rows),
	})
}

func (s *server) handleKnowledgeBank(c *gin.Context) {
	bank, err := s.repo.KnowledgeBank(c.Request.Context(), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": bank, "total": len(bank)})
}

func (s *server) handleScenarioBank(c *gin.Context) {
	bank, err := s.repo.RiskScenarioBank(c.Request.Context(), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": bank, "total": len(bank)})
}

func (s *server) handleMaintenanceBank(c *gin.Context) {
	bank, err := s.repo.MaintenanceBank(c.Request.Context(), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": bank, "total": len(bank)})
}

func (s *server) handleGetModuleConfigs(c *gin.Context) {
	cfgs, err := s.repo.ModuleConfigs(c.Request.Context(), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modules": cfgs})
}

func (s *server) handlePutModuleConfigs(c *gin.Context) {
	var cfgs []assessment.ModuleConfig
	if err := c.BindJSON(&cfgs); err != nil {
		s.abort(c, errors.NewValidationError("request body must be a JSON array of module configs"))
		return
	}

	companyID := s.companyID(c)
	for i := range cfgs {
		cfgs[i].CompanyID = companyID
	}

	if err := assessment.ValidateConfigs(cfgs); err != nil {
		s.abort(c, errors.NewValidationError(err.Error()))
		return
	}

	if err := s.repo.SaveModuleConfigs(c.Request.Context(), cfgs); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"modules": cfgs})
}

func (s *server) handleGetSelectionConfig(c *gin.Context) {
	cfg, err := s.repo.SelectionConfig(c.Request.Context(), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *server) handlePutSelectionConfig(c *gin.Context) {
	var cfg assessment.SelectionConfig
	if err := c.BindJSON(&cfg); err != nil {
		s.abort(c, errors.NewValidationError("invalid selection config"))
		return
	}
	cfg.CompanyID = s.companyID(c)

	if cfg.MinScore < 0 || cfg.MinScore > 100 {
		s.abort(c, errors.NewValidationError("min_score must be between 0 and 100"))
		return
	}

	if err := s.repo.SaveSelectionConfig(c.Request.Context(), cfg); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (s *server) handleCreateCandidate(c *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required"`
		Email        string `json:"email" binding:"required"`
		Phone        string `json:"phone"`
		LicenseClass string `json:"license_class"`
		Experience   string `json:"experience"`
	}
	if err := c.BindJSON(&req); err != nil {
		s.abort(c, errors.NewValidationError("name and email are required"))
		return
	}

	candidate := database.NewCandidate(s.companyID(c),
		s.sec.SanitizeInput(req.Name), req.Email, req.Phone,
		req.LicenseClass, s.sec.SanitizeInput(req.Experience))
	if err := s.repo.CreateCandidate(c.Request.Context(), candidate); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, candidate)
}

func (s *server) handleListCandidates(c *gin.Context) {
	candidates, err := s.repo.ListCandidates(c.Request.Context(), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "total": len(candidates)})
}

func (s *server) handleCandidateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		s.abort(c, errors.NewValidationError("status is required"))
		return
	}

	status := database.CandidateStatus(req.Status)
	switch status {
	case database.CandidatePending, database.CandidateApproved, database.CandidateRejected:
	default:
		s.abort(c, errors.NewValidationError("status must be pending, approved or rejected"))
		return
	}

	if err := s.repo.UpdateCandidateStatus(c.Request.Context(), c.Param("candidateID"), status); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidate_id": c.Param("candidateID"), "status": status})
}

// moduleConfigFor finds the company config for a module, defaulting when the
// company never saved one.
func (s *server) moduleConfigFor(c *gin.Context, module assessment.ModuleType) (assessment.ModuleConfig, bool) {
	cfgs, err := s.repo.ModuleConfigs(c.Request.Context(), s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return assessment.ModuleConfig{}, false
	}
	for _, cfg := range cfgs {
		if cfg.Module == module {
			return cfg, true
		}
	}
	s.abort(c, errors.NewNotFoundError("module config", string(module)))
	return assessment.ModuleConfig{}, false
}

// scenarioQuestions flattens risk scenarios into gradeable questions so the
// stored copy can be scored with the same answer map as the other banks.
func scenarioQuestions(bank []database.RiskScenario) []assessment.Question {
	questions := make([]assessment.Question, 0, len(bank))
	for _, sc := range bank {
		q := assessment.Question{
			ID:           sc.ID,
			TypeTag:      sc.ScenarioType,
			Prompt:       sc.Description,
			CorrectIndex: -1,
		}
		for i, opt := range sc.Options {
			q.Alternatives = append(q.Alternatives, opt.Text)
			if opt.Correct {
				q.CorrectIndex = i
			}
		}
		questions = append(questions, q)
	}
	return questions
}

func maintenanceAsQuestions(bank []database.MaintenanceQuestion) []assessment.Question {
	questions := make([]assessment.Question, 0, len(bank))
	for _, mq := range bank {
		q := assessment.Question{
			ID:           mq.ID,
			TypeTag:      mq.Category,
			Prompt:       mq.Question,
			CorrectIndex: -1,
		}
		for i, opt := range mq.Options {
			q.Alternatives = append(q.Alternatives, opt.Text)
			if opt.Correct {
				q.CorrectIndex = i
			}
		}
		questions = append(questions, q)
	}
	return questions
}

// handleComposeTest builds a fresh shuffled test for one module and stores
// the composed copy under the candidate, so grading never depends on what
// the client sends back with the answers.
func (s *server) handleComposeTest(c *gin.Context) {
	candidateID := c.Param("candidateID")
	module := assessment.ModuleType(c.Param("module"))
	cfg, ok := s.moduleConfigFor(c, module)
	if !ok {
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ctx := c.Request.Context()

	candidate, err := s.repo.GetCandidate(ctx, candidateID)
	if err != nil || candidate.CompanyID != s.companyID(c) {
		s.abort(c, errors.NewNotFoundError("candidate", candidateID))
		return
	}

	switch module {
	case assessment.ModuleKnowledge:
		bank, err := s.repo.KnowledgeBank(ctx, s.companyID(c))
		if err != nil {
			s.abort(c, err)
			return
		}
		instance := assessment.Compose(bank, cfg, rng)
		if err := s.repo.SaveTestInstance(ctx, candidateID, instance); err != nil {
			s.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, instance)

	case assessment.ModuleRisk:
		bank, err := s.repo.RiskScenarioBank(ctx, s.companyID(c))
		if err != nil {
			s.abort(c, err)
			return
		}
		if cfg.ShuffleQuestions {
			rng.Shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })
		}
		if cfg.Scenarios > 0 && len(bank) > cfg.Scenarios {
			bank = bank[:cfg.Scenarios]
		}
		instance := assessment.TestInstance{Module: module, Questions: scenarioQuestions(bank)}
		if err := s.repo.SaveTestInstance(ctx, candidateID, instance); err != nil {
			s.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"module": module, "scenarios": bank})

	case assessment.ModuleMaintenance:
		bank, err := s.repo.MaintenanceBank(ctx, s.companyID(c))
		if err != nil {
			s.abort(c, err)
			return
		}
		if cfg.ShuffleQuestions {
			rng.Shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })
		}
		if cfg.TotalQuestions > 0 && len(bank) > cfg.TotalQuestions {
			bank = bank[:cfg.TotalQuestions]
		}
		instance := assessment.TestInstance{Module: module, Questions: maintenanceAsQuestions(bank)}
		if err := s.repo.SaveTestInstance(ctx, candidateID, instance); err != nil {
			s.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"module": module, "questions": bank})

	case assessment.ModuleReaction:
		// The reaction test is generated client-side; the config carries
		// everything the client needs.
		c.JSON(http.StatusOK, gin.H{"module": module, "config": cfg})

	default:
		s.abort(c, errors.NewValidationError("unknown module"))
	}
}

// submitRequest carries one module submission. Question-style modules send
// answers keyed by question ID, graded against the server's stored copy of
// the composed test; reaction sends raw attempt times.
type submitRequest struct {
	Module       assessment.ModuleType `json:"module" binding:"required"`
	TimeSpentSec int                   `json:"time_spent_sec"`
	Answers      map[string]int        `json:"answers,omitempty"`
	AttemptsMS   []int                 `json:"attempts_ms,omitempty"`
}

func (s *server) handleSubmitModule(c *gin.Context) {
	candidateID := c.Param("candidateID")

	var req submitRequest
	if err := c.BindJSON(&req); err != nil {
		s.abort(c, errors.NewValidationError("module is required"))
		return
	}

	cfg, ok := s.moduleConfigFor(c, req.Module)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	candidate, err := s.repo.GetCandidate(ctx, candidateID)
	if err != nil || candidate.CompanyID != s.companyID(c) {
		s.abort(c, errors.NewNotFoundError("candidate", candidateID))
		return
	}

	results, err := s.repo.ModuleResults(ctx, candidateID)
	if err != nil {
		s.abort(c, err)
		return
	}
	if last, taken := results[req.Module]; taken {
		if !assessment.CanRetake(cfg, last, time.Now()) {
			s.abort(c, errors.NewValidationError("module retake is not available yet"))
			return
		}
	}

	var score float64
	switch req.Module {
	case assessment.ModuleKnowledge, assessment.ModuleMaintenance, assessment.ModuleRisk:
		instance, found, err := s.repo.TestInstanceFor(ctx, candidateID, req.Module)
		if err != nil {
			s.abort(c, err)
			return
		}
		if !found {
			s.abort(c, errors.NewValidationError("no composed test on file for this module"))
			return
		}
		graded, applicable := assessment.ScoreTest(instance, req.Answers)
		if !applicable {
			s.abort(c, errors.NewValidationError("composed test has no questions"))
			return
		}
		score = graded

	case assessment.ModuleReaction:
		attempts := make([]time.Duration, 0, len(req.AttemptsMS))
		for _, ms := range req.AttemptsMS {
			attempts = append(attempts, time.Duration(ms)*time.Millisecond)
		}
		score = assessment.ScoreReaction(attempts, time.Duration(cfg.MaxReactionTimeMS)*time.Millisecond)

	default:
		s.abort(c, errors.NewValidationError("unknown module"))
		return
	}

	result := assessment.ModuleResult{
		Module:       req.Module,
		Score:        score,
		CompletedAt:  time.Now(),
		TimeSpentSec: req.TimeSpentSec,
		Completed:    true,
	}
	if err := s.repo.SaveModuleResult(ctx, candidateID, result); err != nil {
		s.abort(c, err)
		return
	}

	s.metrics.IncrementAssessments()
	s.prom.ObserveAssessment(string(req.Module))
	s.logger.AssessmentLogger(candidateID, string(req.Module), score, time.Duration(req.TimeSpentSec)*time.Second)

	c.JSON(http.StatusOK, gin.H{
		"candidate_id": candidateID,
		"module":       req.Module,
		"score":        score,
		"passed":       score >= float64(cfg.PassingScore),
	})
}

// handleCandidateResult computes the weighted composite outcome.
func (s *server) handleCandidateResult(c *gin.Context) {
	candidateID := c.Param("candidateID")
	ctx := c.Request.Context()
	companyID := s.companyID(c)

	candidate, err := s.repo.GetCandidate(ctx, candidateID)
	if err != nil || candidate.CompanyID != companyID {
		s.abort(c, errors.NewNotFoundError("candidate", candidateID))
		return
	}

	cfgs, err := s.repo.ModuleConfigs(ctx, companyID)
	if err != nil {
		s.abort(c, err)
		return
	}
	selection, err := s.repo.SelectionConfig(ctx, companyID)
	if err != nil {
		s.abort(c, err)
		return
	}
	results, err := s.repo.ModuleResults(ctx, candidateID)
	if err != nil {
		s.abort(c, err)
		return
	}

	flow := assessment.NewFlow(cfgs)
	allCompleted := flow.AllCompleted(results)

	// The composite only exists once every enabled module is completed;
	// partial pipelines report a null result.
	resp := gin.H{
		"candidate_id":  candidateID,
		"result":        nil,
		"all_completed": allCompleted,
	}
	if allCompleted {
		scores := make(map[assessment.ModuleType]float64, len(results))
		for module, r := range results {
			scores[module] = r.Score
		}
		bar := assessment.PassBar{Source: assessment.PassBarCompany, MinScore: selection.MinScore}
		resp["result"] = assessment.ScoreComposite(scores, cfgs, bar)
	}

	c.JSON(http.StatusOK, resp)
}

// handleCandidateNext returns the next pending module in the flow.
func (s *server) handleCandidateNext(c *gin.Context) {
	candidateID := c.Param("candidateID")
	ctx := c.Request.Context()

	cfgs, err := s.repo.ModuleConfigs(ctx, s.companyID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	results, err := s.repo.ModuleResults(ctx, candidateID)
	if err != nil {
		s.abort(c, err)
		return
	}

	flow := assessment.NewFlow(cfgs)
	next, pending := flow.Next(results)
	if !pending {
		c.JSON(http.StatusOK, gin.H{"all_completed": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"all_completed": false, "next": next})
}

// handleCandidateRetake reports whether a module can be retaken now.
func (s *server) handleCandidateRetake(c *gin.Context) {
	candidateID := c.Param("candidateID")
	module := assessment.ModuleType(c.Param("module"))

	cfg, ok := s.moduleConfigFor(c, module)
	if !ok {
		return
	}

	results, err := s.repo.ModuleResults(c.Request.Context(), candidateID)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"candidate_id": candidateID,
		"module":       module,
		"can_retake":   assessment.CanRetake(cfg, results[module], time.Now()),
	})
}

func (s *server) handleAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alerts":    s.alerts.GetAlerts(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *server) handleActiveAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alerts":    s.alerts.GetActiveAlerts(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *server) handleRetentionPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, s.retention.Info())
}

// handleDeleteDriver removes a driver's telemetry and assessments.
func (s *server) handleDeleteDriver(c *gin.Context) {
	driverID := c.Param("driverID")
	companyID := s.companyID(c)

	op, err := s.repo.GetOperator(c.Request.Context(), driverID)
	if err != nil || op.CompanyID != companyID {
		s.abort(c, errors.NewNotFoundError("driver", driverID))
		return
	}

	if err := s.retention.DeleteDriverData(c.Request.Context(), driverID); err != nil {
		s.abort(c, err)
		return
	}

	s.risk.InvalidateCache(driverID)
	s.ranking.Invalidate(companyID)
	s.cache.Clear()

	c.JSON(http.StatusOK, gin.H{"driver_id": driverID, "deleted": true})
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
		"database":    s.db.GetPoolStats(),
		"cache":       s.cache.Stats(),
		"ranking":     s.ranking.GetCacheStats(),
		"limiter":     s.limiter.GetStats(),
		"compression": s.compress.GetStats(),
	})
}

func (s *server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetStats())
}
