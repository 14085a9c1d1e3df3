package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/solar-portfolio/internal/logging"
	"github.com/Zachkp/solar-portfolio/internal/solar"
	"github.com/Zachkp/solar-portfolio/internal/store"
)

const sessionCookie = "solar_session"

// solarView is what every solar template renders from.
type solarView struct {
	solar.Snapshot
	View          string
	Regions       []string
	Groups        []solar.ResultGroup
	Notifications []solar.Notification
	Progress      int
	Busy          bool
}

func (a *app) setupSolarRoutes(r *gin.Engine) {
	r.GET("/solar", a.handleSolarPage)
	r.GET("/solar/view", a.handleSolarView)
	r.POST("/solar/calculate", a.handleSolarSubmit)
	r.PATCH("/solar/field", a.handleSolarEdit)
	r.GET("/solar/events", a.handleSolarEvents)
	r.DELETE("/solar/run", a.handleSolarCancel)

	api := r.Group("/api/solar")
	api.GET("/regions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"regions": a.regions.Names()})
	})
	api.POST("/calculate", a.handleSolarAPI)
}

// solarSession returns the visitor's session ID, issuing a cookie when the
// visitor has none.
func (a *app) solarSession(c *gin.Context) string {
	if id, err := c.Cookie(sessionCookie); err == nil && solar.ValidSessionID(id) {
		return id
	}
	id := solar.NewSessionID()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(a.cfg.SessionTTL.Seconds()), "/", "", gin.Mode() == gin.ReleaseMode, true)
	return id
}

func (a *app) buildView(f *solar.Flow) solarView {
	snap := f.Snapshot()
	v := solarView{
		Snapshot:      snap,
		View:          snap.View().String(),
		Regions:       a.regions.Names(),
		Notifications: f.TakeNotifications(),
		Progress:      snap.Progress(),
		Busy:          snap.State == solar.StateRunning,
	}
	if snap.Result != nil && snap.View() == solar.ViewResult {
		v.Groups = solar.Groups(*snap.Result)
	}
	return v
}

func (a *app) handleSolarPage(c *gin.Context) {
	f := a.sessions.Flow(a.solarSession(c))
	c.HTML(http.StatusOK, "solar.html", a.buildView(f))
}

func (a *app) handleSolarView(c *gin.Context) {
	f := a.sessions.Flow(a.solarSession(c))
	c.HTML(http.StatusOK, "solar-panel.html", a.buildView(f))
}

func (a *app) handleSolarSubmit(c *gin.Context) {
	id := a.solarSession(c)
	in := solar.FormInput{
		State:        c.PostForm(solar.FieldState),
		MonthlyUnits: c.PostForm(solar.FieldMonthlyUnits),
		Coordinates:  c.PostForm(solar.FieldCoordinates),
	}

	status := http.StatusOK
	err := a.sessions.Start(id, in)
	var verrs solar.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		// Inline field errors are rendered from the snapshot.
	case errors.Is(err, solar.ErrBusy):
		status = http.StatusConflict
	default:
		a.log.Error(c.Request.Context(), "solar submit failed", logging.Error(err))
		status = http.StatusInternalServerError
	}
	c.HTML(status, "solar-panel.html", a.buildView(a.sessions.Flow(id)))
}

func (a *app) handleSolarEdit(c *gin.Context) {
	field := c.PostForm("field")
	switch field {
	case solar.FieldState, solar.FieldMonthlyUnits, solar.FieldCoordinates:
	default:
		c.Status(http.StatusBadRequest)
		return
	}
	snap := a.sessions.Flow(a.solarSession(c)).Edit(field, c.PostForm(field))
	c.HTML(http.StatusOK, "solar-field-error.html", gin.H{
		"Field":   field,
		"Message": snap.Errors[field],
	})
}

func (a *app) handleSolarCancel(c *gin.Context) {
	if !a.sessions.Cancel(a.solarSession(c)) {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusAccepted)
}

// handleSolarEvents streams "phase" events carrying the rendered phase list
// and a final "done" event once the submission leaves the running state.
func (a *app) handleSolarEvents(c *gin.Context) {
	f, ok := a.sessions.Lookup(a.solarSession(c))
	if !ok {
		c.SSEvent("done", "idle")
		return
	}

	events, unsubscribe := f.Subscribe()
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	snap := f.Snapshot()
	if snap.State != solar.StateRunning {
		c.SSEvent("done", snap.State.String())
		return
	}
	c.SSEvent("phase", a.renderFragment("solar-steps.html", solarView{Snapshot: snap, Progress: snap.Progress()}))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if !ev.Final() {
				c.SSEvent("phase", a.renderFragment("solar-steps.html", solarView{Snapshot: ev.Snapshot, Progress: ev.Snapshot.Progress()}))
				return true
			}
			c.SSEvent("done", string(ev.Type))
			return false
		}
	})
}

func (a *app) renderFragment(name string, data any) string {
	var buf bytes.Buffer
	if err := a.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		a.log.Error(context.Background(), "render fragment", logging.String("template", name), logging.Error(err))
		return ""
	}
	return buf.String()
}

type solarAPIRequest struct {
	State        string          `json:"state"`
	MonthlyUnits json.RawMessage `json:"monthly_units"`
	LatLong      string          `json:"latlong"`
}

// handleSolarAPI runs a fresh flow to completion for JSON clients.
func (a *app) handleSolarAPI(c *gin.Context) {
	var req solarAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
		return
	}
	in := solar.FormInput{
		State:        req.State,
		MonthlyUnits: strings.Trim(string(req.MonthlyUnits), `"`),
		Coordinates:  req.LatLong,
	}

	f := a.newFlow()
	started := a.now()
	res, err := f.Submit(c.Request.Context(), in)

	var verrs solar.ValidationErrors
	var terr *solar.TransportError
	switch {
	case err == nil:
		a.recordCompletion(c.Request.Context(), solar.Completion{
			Input: f.Snapshot().Input, Result: res, Started: started, Finished: a.now(),
		})
		c.JSON(http.StatusOK, gin.H{
			"result":        res,
			"groups":        solar.Groups(*res),
			"notifications": f.TakeNotifications(),
		})
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verrs})
	case errors.As(err, &terr):
		a.recordCompletion(c.Request.Context(), solar.Completion{
			Input: f.Snapshot().Input, Err: err, Started: started, Finished: a.now(),
		})
		c.JSON(http.StatusBadGateway, gin.H{
			"error":         "Calculation failed. Please try again.",
			"notifications": f.TakeNotifications(),
		})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "calculation cancelled"})
	}
}

// recordCompletion stores a finished submission in the calculation history.
func (a *app) recordCompletion(ctx context.Context, done solar.Completion) {
	if a.store == nil {
		return
	}
	units, _ := solar.ParseMonthlyUnits(done.Input.MonthlyUnits)
	rec := &store.Calculation{
		SessionID:    done.SessionID,
		State:        done.Input.State,
		MonthlyUnits: units,
		LatLong:      done.Input.Coordinates,
		Outcome:      solar.OutcomeSucceeded,
		DurationMS:   done.Finished.Sub(done.Started).Milliseconds(),
		CreatedAt:    done.Finished,
	}
	if done.Succeeded() {
		rec.RecommendedKW = done.Result.RecommendedKW
		rec.NetCost = done.Result.NetCost
		rec.LifetimeSavings = done.Result.LifetimeSavings
	} else {
		rec.Outcome = solar.OutcomeFailed
		if done.Err != nil {
			rec.Error = done.Err.Error()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.store.RecordCalculation(ctx, rec); err != nil {
		a.log.Error(ctx, "record calculation", logging.Error(err))
	}
}
