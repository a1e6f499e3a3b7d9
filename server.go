package main

import (
	"database/sql"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler carries the server-side state: the DB handle, config, the
// deployment keyword dictionary, and the manual-override layer (the last
// grade per room, mutable only through the override endpoint).
type Handler struct {
	DB       *sql.DB
	Cfg      Config
	Keywords map[string][]string

	mu         sync.Mutex
	lastGrades map[int64]GradeResult
}

func NewHandler(db *sql.DB, cfg Config, keywords map[string][]string) *Handler {
	return &Handler{
		DB:         db,
		Cfg:        cfg,
		Keywords:   keywords,
		lastGrades: make(map[int64]GradeResult),
	}
}

func (h *Handler) Routes(app *fiber.App) {
	app.Get("/rooms", h.ListRooms)
	app.Post("/rooms", h.CreateRoom)
	app.Post("/rooms/:id/join", h.JoinRoom)
	app.Post("/rooms/:id/messages", h.PostMessage)
	app.Get("/rooms/:id/messages", h.PollMessages)
	app.Get("/rooms/:id/status", h.PollStatus)
	app.Post("/rooms/:id/grade", h.GradeRoom)
	app.Post("/rooms/:id/override", h.OverrideVerdict)
	app.Post("/rooms/:id/export", h.ExportReport)
	app.Get("/scorecard", h.GetScorecard)
	app.Put("/scorecard", h.SaveScorecard)
}

func (h *Handler) ListRooms(c *fiber.Ctx) error {
	rooms, err := ListRooms(h.DB)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

func (h *Handler) CreateRoom(c *fiber.Ctx) error {
	var req struct {
		Host string `json:"host"`
	}
	if err := c.BodyParser(&req); err != nil || req.Host == "" {
		return badRequest(c, "host name required")
	}
	id, err := CreateRoom(h.DB, req.Host, time.Now())
	if err != nil {
		return serverError(c, err)
	}
	room, err := GetRoom(h.DB, id)
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

func (h *Handler) JoinRoom(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return badRequest(c, "name required")
	}
	room, err := GetRoom(h.DB, int64(roomID))
	if err == sql.ErrNoRows {
		return notFound(c, "room not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	if room.HasCounterpart() {
		return badRequest(c, "room already has a counterpart")
	}
	if err := JoinRoom(h.DB, room.ID, req.Name); err != nil {
		return serverError(c, err)
	}
	room.Counterpart = req.Name
	return c.JSON(room)
}

func (h *Handler) PostMessage(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	var req struct {
		Sender string `json:"sender"`
		Role   string `json:"role"`
		Text   string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid message body")
	}
	if req.Sender == "" || req.Text == "" {
		return badRequest(c, "sender and text required")
	}
	if req.Role != RoleAgent && req.Role != RoleCounterpart {
		return badRequest(c, "role must be Agent or Counterpart")
	}
	if _, err := GetRoom(h.DB, int64(roomID)); err == sql.ErrNoRows {
		return notFound(c, "room not found")
	} else if err != nil {
		return serverError(c, err)
	}

	id, err := InsertMessage(h.DB, Message{
		RoomID:    int64(roomID),
		Sender:    req.Sender,
		Role:      req.Role,
		Text:      req.Text,
		Timestamp: time.Now(),
	})
	if err != nil {
		return serverError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// PollMessages serves the transcript poll. Clients pass their own cursor
// as after_id; omitting it returns the transcript from the start.
func (h *Handler) PollMessages(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	afterID := int64(c.QueryInt("after_id", 0))
	msgs, err := GetMessagesAfter(h.DB, int64(roomID), afterID, h.Cfg.MessagePageLimit)
	if err != nil {
		return serverError(c, err)
	}
	cursor := afterID
	if len(msgs) > 0 {
		cursor = msgs[len(msgs)-1].ID
	}
	return c.JSON(fiber.Map{"messages": msgs, "cursor": cursor})
}

func (h *Handler) PollStatus(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	state, err := PollRoomStatus(SQLRoomStore{DB: h.DB}, int64(roomID), time.Now(), h.Cfg.Thresholds())
	if err == sql.ErrNoRows {
		return notFound(c, "room not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":          state.Status,
		"elapsed_seconds": state.ElapsedSeconds,
		"agent_turn":      state.AgentTurn,
	})
}

func (h *Handler) GradeRoom(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	msgs, sc, err := h.loadTranscriptAndScorecard(int64(roomID))
	if err == sql.ErrNoRows {
		return notFound(c, "room not found")
	}
	if err != nil {
		return serverError(c, err)
	}

	result := PerformGrading(msgs, sc, h.Keywords)

	h.mu.Lock()
	h.lastGrades[int64(roomID)] = result
	h.mu.Unlock()

	return c.JSON(gradeResponse(result, sc))
}

// OverrideVerdict lets a supervisor flip one PASS/FAIL verdict from the
// last automatic grade. The keyword scan is not re-run; the score is
// recomputed from the edited breakdown.
func (h *Handler) OverrideVerdict(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	var req struct {
		CriterionID string `json:"criterion_id"`
		Verdict     string `json:"verdict"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid override body")
	}
	if req.Verdict != VerdictPass && req.Verdict != VerdictFail {
		return badRequest(c, "verdict must be PASS or FAIL")
	}

	sc, err := LoadScorecard(h.DB)
	if err != nil {
		return serverError(c, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	result, ok := h.lastGrades[int64(roomID)]
	if !ok {
		return badRequest(c, "room has not been graded yet")
	}
	if result.CriticalFailure != "" {
		return badRequest(c, "critical failures cannot be overridden")
	}
	if _, ok := result.Breakdown[req.CriterionID]; !ok {
		return badRequest(c, "unknown criterion id")
	}

	result = ApplyOverride(result, sc, req.CriterionID, req.Verdict)
	h.lastGrades[int64(roomID)] = result
	return c.JSON(gradeResponse(result, sc))
}

func (h *Handler) ExportReport(c *fiber.Ctx) error {
	roomID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "invalid room id")
	}
	room, err := GetRoom(h.DB, int64(roomID))
	if err == sql.ErrNoRows {
		return notFound(c, "room not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	msgs, sc, err := h.loadTranscriptAndScorecard(room.ID)
	if err != nil {
		return serverError(c, err)
	}

	h.mu.Lock()
	result, graded := h.lastGrades[room.ID]
	h.mu.Unlock()
	if !graded {
		result = PerformGrading(msgs, sc, h.Keywords)
	}

	now := time.Now()
	content := RenderGradeReport(room, msgs, sc, result, now)
	path, err := WriteGradeReportFile(content, h.Cfg.ExportDir, room.ID, now)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(fiber.Map{"path": path})
}

func (h *Handler) GetScorecard(c *fiber.Ctx) error {
	sc, err := LoadScorecard(h.DB)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(fiber.Map{"scorecard": sc})
}

func (h *Handler) SaveScorecard(c *fiber.Ctx) error {
	var req struct {
		Scorecard []Criterion `json:"scorecard"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.Scorecard) == 0 {
		return badRequest(c, "scorecard required")
	}
	if err := SaveScorecard(h.DB, req.Scorecard); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(fiber.Map{"saved": len(req.Scorecard)})
}

func (h *Handler) loadTranscriptAndScorecard(roomID int64) ([]Message, []Criterion, error) {
	if _, err := GetRoom(h.DB, roomID); err != nil {
		return nil, nil, err
	}
	msgs, err := GetMessages(h.DB, roomID)
	if err != nil {
		return nil, nil, err
	}
	sc, err := LoadScorecard(h.DB)
	if err != nil {
		return nil, nil, err
	}
	return msgs, sc, nil
}

// gradeResponse joins display names back onto the id-keyed breakdown, in
// scorecard order, for rendering.
func gradeResponse(res GradeResult, sc []Criterion) fiber.Map {
	items := make([]fiber.Map, 0, len(res.Breakdown))
	for _, c := range sc {
		verdict, ok := res.Breakdown[c.ID]
		if !ok {
			continue
		}
		items = append(items, fiber.Map{
			"id":      c.ID,
			"name":    c.Name,
			"weight":  c.Weight,
			"verdict": verdict,
		})
	}
	return fiber.Map{
		"score_percent":    res.ScorePercent,
		"critical_failure": res.CriticalFailure,
		"breakdown":        items,
		"tips":             res.Tips,
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

func serverError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
