package httpserver

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"

	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
	"github.com/bryanwahyu/alphatrend/internal/domain/radar"
	"github.com/bryanwahyu/alphatrend/internal/domain/session"
	"github.com/bryanwahyu/alphatrend/internal/logger"
	"github.com/bryanwahyu/alphatrend/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{
	"form":    parsePage("templates/form.html"),
	"session": parsePage("templates/session.html"),
}

func parsePage(file string) *template.Template {
	return template.Must(template.New("layout.html").ParseFS(templateFS, "templates/layout.html", file))
}

const (
	refreshAnalyzing = 3
	refreshPrices    = 2
)

type formPage struct {
	SessionID session.ID
	Request   analysis.Request
	Error     string
	Refresh   int
}

type stockCard struct {
	Name      string
	Symbol    string
	Rationale string
	Price     string
	Change    string
	Direction quote.Direction
	Pending   bool
	Source    string
	QuoteURL  string
	TopPick   bool
}

type legendRow struct {
	Name   string
	Color  string
	Scores []string
	Avg    string
}

type sessionPage struct {
	formPage
	State      session.State
	Narrative  template.HTML
	Stocks     []stockCard
	Dimensions []string
	Legend     []legendRow
	ChartURL   string
	ChartSize  int
	Model      string
}

func (r *Router) renderPage(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := pages[name].Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// GET /
func (r *Router) pageForm(w http.ResponseWriter, req *http.Request) error {
	return r.renderPage(w, http.StatusOK, "form", formPage{})
}

// POST /analyze
// Reuses the session named by the hidden session_id field when it still exists.
func (r *Router) pageSubmit(w http.ResponseWriter, req *http.Request) error {
	ar, err := r.readRequest(w, req)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidRequest) {
			return r.renderPage(w, http.StatusBadRequest, "form", formPage{Request: ar, Error: err.Error()})
		}
		return err
	}

	id := session.ID(req.FormValue(fieldSession))
	if middleware.ValidateSessionID(string(id)) != nil {
		id = ""
	} else if _, err := r.sessions.Get(req.Context(), id); err != nil {
		id = ""
	}
	if id == "" {
		sess, err := r.sessions.Create(req.Context())
		if err != nil {
			return err
		}
		id = sess.ID
	}

	err = r.sessions.Submit(req.Context(), id, ar)
	switch {
	case errors.Is(err, analysis.ErrInvalidRequest):
		return r.renderPage(w, http.StatusBadRequest, "form", formPage{SessionID: id, Request: ar, Error: err.Error()})
	case errors.Is(err, session.ErrBusy):
		// already running: show the pending view
	case err != nil:
		return err
	}
	http.Redirect(w, req, "/s/"+string(id), http.StatusSeeOther)
	return nil
}

// GET /s/{id}
func (r *Router) pageSession(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	sess, err := r.sessions.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return r.renderPage(w, http.StatusOK, "session", r.buildSessionPage(sess))
}

// POST /s/{id}/reset
func (r *Router) pageReset(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	if err := r.sessions.Reset(req.Context(), id); err != nil {
		return err
	}
	http.Redirect(w, req, "/s/"+string(id), http.StatusSeeOther)
	return nil
}

func (r *Router) buildSessionPage(sess *session.Session) sessionPage {
	p := sessionPage{
		formPage: formPage{SessionID: sess.ID, Error: sess.Error},
		State:    sess.State,
	}
	if sess.Request != nil {
		p.Request = *sess.Request
		p.Request.Attachment = nil
	}

	switch sess.State {
	case session.StateAnalyzing:
		p.Refresh = refreshAnalyzing
		return p
	case session.StateCompleted:
	default:
		return p
	}

	rep := sess.Report
	p.Model = rep.Model
	narrative, err := r.markdown.HTML(rep.Narrative)
	if err != nil {
		logger.Log.WithError(err).WithField("report", rep.ID).Warn("render narrative failed")
		narrative = template.HTML("<pre>" + template.HTMLEscapeString(rep.Narrative) + "</pre>")
	}
	p.Narrative = narrative

	top, hasTop := rep.TopPick()
	for i, st := range rep.Stocks {
		card := stockCard{
			Name:      st.Name,
			Symbol:    st.Symbol,
			Rationale: st.Rationale,
			Price:     st.ReferencePrice,
			TopPick:   hasTop && i == top,
		}
		if st.Symbol != "" {
			card.QuoteURL = quote.QuotePageURL(r.linkBase, st.Symbol)
		}
		if i < len(sess.Prices) {
			slot := sess.Prices[i]
			card.Price = slot.Display()
			card.Change = slot.ChangeText()
			card.Direction = slot.Direction()
			card.Pending = slot.State == quote.StatePending
			card.Source = priceSource(slot.State)
			if card.Pending {
				p.Refresh = refreshPrices
			}
		}
		p.Stocks = append(p.Stocks, card)
	}

	if rep.HasMatrix() {
		p.Dimensions = rep.Matrix.Dimensions
		for i, c := range rep.Matrix.Companies {
			row := legendRow{Name: c.Name, Color: radar.ColorFor(i), Avg: radar.FormatAverage(c.Scores)}
			for _, s := range c.Scores {
				row.Scores = append(row.Scores, strconv.FormatFloat(s, 'f', -1, 64))
			}
			p.Legend = append(p.Legend, row)
		}
		if len(rep.Matrix.Dimensions) >= radar.MinDimensions {
			p.ChartURL = "/s/" + string(sess.ID) + "/chart.svg"
			p.ChartSize = int(math.Round(r.charts.Layout().Size))
		}
	}
	return p
}

// priceSource labels where a settled price came from.
func priceSource(st quote.State) string {
	switch st {
	case quote.StateLive:
		return "Yahoo live"
	case quote.StateFallback:
		return "AI reference"
	default:
		return ""
	}
}
