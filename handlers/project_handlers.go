package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sitepulse/api/models"
	"sitepulse/api/store"
	"sitepulse/api/utils"
)

// ProjectHandlers owns the dashboard's management surface: projects, consent
// settings, internal IP rules and the stored report/funnel/definition CRUD.
type ProjectHandlers struct {
	Projects *store.ProjectStore
	Reports  *store.ReportStore
	Events   store.EventStore
	Cache    *store.ProjectCache
}

func NewProjectHandlers(projects *store.ProjectStore, reports *store.ReportStore, events store.EventStore, cache *store.ProjectCache) *ProjectHandlers {
	return &ProjectHandlers{Projects: projects, Reports: reports, Events: events, Cache: cache}
}

func currentUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}

// requireProject loads the project from the path and verifies the caller
// owns it. It writes the error response itself on failure.
func (h *ProjectHandlers) requireProject(c *gin.Context) (*models.Project, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	project, err := h.Projects.GetProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return nil, false
		}
		log.Printf("Project lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return nil, false
	}
	if project.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return nil, false
	}
	return project, true
}

// RequireProjectOwnership gates a :projectId route group on ownership, so
// the analysis handlers behind it can trust the path parameter.
func (h *ProjectHandlers) RequireProjectOwnership() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.requireProject(c); !ok {
			c.Abort()
			return
		}
		c.Next()
	}
}

type createProjectRequest struct {
	Name   string `json:"name" binding:"required"`
	Domain string `json:"domain" binding:"required"`
}

func (h *ProjectHandlers) CreateProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	publicKey, err := utils.GeneratePublicKey()
	if err != nil {
		log.Printf("CreateProject: key generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	project := &models.Project{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		Name:      req.Name,
		Domain:    req.Domain,
		PublicKey: publicKey,
	}
	if err := h.Projects.CreateProject(c.Request.Context(), project); err != nil {
		log.Printf("CreateProject: insert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project})
}

func (h *ProjectHandlers) ListProjects(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	projects, err := h.Projects.ListProjectsByOwner(c.Request.Context(), userID)
	if err != nil {
		log.Printf("ListProjects: query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *ProjectHandlers) GetProject(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// DeleteProject removes the project row and erases its event history.
func (h *ProjectHandlers) DeleteProject(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	if err := h.Projects.DeleteProject(c.Request.Context(), project.ID, project.OwnerID); err != nil {
		log.Printf("DeleteProject: delete failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}
	if err := h.Events.DeleteProject(c.Request.Context(), project.ID); err != nil {
		// Row is gone; event erasure is retried by hand if this fails.
		log.Printf("DeleteProject: event erasure failed for %s: %v", project.ID, err)
	}
	h.Cache.Invalidate(c.Request.Context(), project.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

func (h *ProjectHandlers) GetConsentSettings(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	settings, err := h.Projects.GetConsentSettings(c.Request.Context(), project.ID)
	if err != nil {
		log.Printf("GetConsentSettings: lookup failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load consent settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

type consentSettingsRequest struct {
	ConsentMode   string `json:"consentMode" binding:"required,oneof=opt_in opt_out"`
	RespectDNT    bool   `json:"respectDnt"`
	AnonymizeIP   bool   `json:"anonymizeIp"`
	Cookieless    bool   `json:"cookieless"`
	RetentionDays int    `json:"retentionDays"`
}

func (h *ProjectHandlers) UpdateConsentSettings(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	var req consentSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	settings := &models.ConsentSettings{
		ProjectID:     project.ID,
		ConsentMode:   req.ConsentMode,
		RespectDNT:    req.RespectDNT,
		AnonymizeIP:   req.AnonymizeIP,
		Cookieless:    req.Cookieless,
		RetentionDays: req.RetentionDays,
	}
	if err := h.Projects.UpsertConsentSettings(c.Request.Context(), settings); err != nil {
		log.Printf("UpdateConsentSettings: upsert failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save consent settings"})
		return
	}
	h.Cache.Invalidate(c.Request.Context(), project.ID)
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *ProjectHandlers) ListIPRules(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	rules, err := h.Projects.ListInternalIPRules(c.Request.Context(), project.ID)
	if err != nil {
		log.Printf("ListIPRules: query failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list IP rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

type ipRuleRequest struct {
	RuleType string `json:"ruleType" binding:"required,oneof=exact prefix cidr"`
	Value    string `json:"value" binding:"required"`
	Label    string `json:"label"`
}

func (h *ProjectHandlers) CreateIPRule(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	var req ipRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	rule := &models.InternalIPRule{
		ProjectID: project.ID,
		RuleType:  req.RuleType,
		Value:     req.Value,
		Label:     req.Label,
	}
	if err := h.Projects.CreateInternalIPRule(c.Request.Context(), rule); err != nil {
		log.Printf("CreateIPRule: insert failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create IP rule"})
		return
	}
	h.Cache.Invalidate(c.Request.Context(), project.ID)
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

func (h *ProjectHandlers) DeleteIPRule(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	ruleID, err := strconv.Atoi(c.Param("ruleId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule id"})
		return
	}
	if err := h.Projects.DeleteInternalIPRule(c.Request.Context(), project.ID, ruleID); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "IP rule not found"})
			return
		}
		log.Printf("DeleteIPRule: delete failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete IP rule"})
		return
	}
	h.Cache.Invalidate(c.Request.Context(), project.ID)
	c.JSON(http.StatusOK, gin.H{"message": "IP rule deleted"})
}

type createReportRequest struct {
	Name      string                `json:"name" binding:"required"`
	ChartType string                `json:"chartType"`
	Metrics   []string              `json:"metrics" binding:"required,min=1"`
	Dimension string                `json:"dimension" binding:"required"`
	DateRange string                `json:"dateRange"`
	Filters   *models.ReportFilters `json:"filters"`
}

func (h *ProjectHandlers) CreateReport(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	report := &models.CustomReport{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Name:      req.Name,
		ChartType: req.ChartType,
		Metrics:   req.Metrics,
		Dimension: req.Dimension,
		DateRange: req.DateRange,
		Filters:   req.Filters,
	}
	if err := h.Reports.CreateReport(c.Request.Context(), report); err != nil {
		log.Printf("CreateReport: insert failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create report"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

func (h *ProjectHandlers) ListReports(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	reports, err := h.Reports.ListReports(c.Request.Context(), project.ID)
	if err != nil {
		log.Printf("ListReports: query failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *ProjectHandlers) DeleteReport(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	if err := h.Reports.DeleteReport(c.Request.Context(), project.ID, c.Param("reportId")); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		log.Printf("DeleteReport: delete failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted"})
}

type createFunnelRequest struct {
	Name  string              `json:"name" binding:"required"`
	Steps []models.FunnelStep `json:"steps" binding:"required,min=1"`
}

func (h *ProjectHandlers) CreateFunnel(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	var req createFunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	funnel := &models.Funnel{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Name:      req.Name,
		Steps:     req.Steps,
	}
	if err := h.Reports.CreateFunnel(c.Request.Context(), funnel); err != nil {
		log.Printf("CreateFunnel: insert failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create funnel"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"funnel": funnel})
}

func (h *ProjectHandlers) ListFunnels(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	funnels, err := h.Reports.ListFunnels(c.Request.Context(), project.ID)
	if err != nil {
		log.Printf("ListFunnels: query failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list funnels"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"funnels": funnels})
}

func (h *ProjectHandlers) DeleteFunnel(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	if err := h.Reports.DeleteFunnel(c.Request.Context(), project.ID, c.Param("funnelId")); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Funnel not found"})
			return
		}
		log.Printf("DeleteFunnel: delete failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete funnel"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Funnel deleted"})
}

type createDefinitionRequest struct {
	Name  string             `json:"name" binding:"required"`
	Rules []models.MatchRule `json:"rules" binding:"required,min=1"`
}

func (h *ProjectHandlers) CreateCustomEventDefinition(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	var req createDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	def := &models.CustomEventDefinition{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		Name:      req.Name,
		Rules:     req.Rules,
	}
	if err := h.Reports.CreateCustomEventDefinition(c.Request.Context(), def); err != nil {
		log.Printf("CreateCustomEventDefinition: insert failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create definition"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"definition": def})
}

func (h *ProjectHandlers) ListCustomEventDefinitions(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	defs, err := h.Reports.ListCustomEventDefinitions(c.Request.Context(), project.ID)
	if err != nil {
		log.Printf("ListCustomEventDefinitions: query failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list definitions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"definitions": defs})
}

func (h *ProjectHandlers) DeleteCustomEventDefinition(c *gin.Context) {
	project, ok := h.requireProject(c)
	if !ok {
		return
	}

	if err := h.Reports.DeleteCustomEventDefinition(c.Request.Context(), project.ID, c.Param("definitionId")); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Custom event definition not found"})
			return
		}
		log.Printf("DeleteCustomEventDefinition: delete failed for %s: %v", project.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete definition"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Custom event definition deleted"})
}
