package httpserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	appquotes "github.com/bryanwahyu/alphatrend/internal/application/quotes"
	"github.com/bryanwahyu/alphatrend/internal/domain/analysis"
	"github.com/bryanwahyu/alphatrend/internal/domain/quote"
	"github.com/bryanwahyu/alphatrend/internal/domain/session"
	"github.com/bryanwahyu/alphatrend/internal/infra/render"
	"github.com/bryanwahyu/alphatrend/internal/middleware"
)

var errNoChart = errors.New("no chart for this session")

// form field names shared by the JSON API and the HTML form
const (
	fieldIndustry   = "industry"
	fieldTechnology = "technology"
	fieldMarket     = "market"
	fieldAttachment = "attachment"
	fieldSession    = "session_id"
)

func invalid(err error) error {
	return fmt.Errorf("%w: %v", analysis.ErrInvalidRequest, err)
}

// readRequest parses a multipart or urlencoded analysis form.
func (r *Router) readRequest(w http.ResponseWriter, req *http.Request) (analysis.Request, error) {
	// room for the text fields on top of the attachment
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+1<<20)

	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		if err := req.ParseMultipartForm(8 << 20); err != nil {
			return analysis.Request{}, invalid(err)
		}
	} else if err := req.ParseForm(); err != nil {
		return analysis.Request{}, invalid(err)
	}

	ar := analysis.Request{
		Industry:   middleware.SanitizeString(req.FormValue(fieldIndustry)),
		Technology: middleware.SanitizeString(req.FormValue(fieldTechnology)),
		Market:     middleware.SanitizeString(req.FormValue(fieldMarket)),
	}
	if err := middleware.ValidateAnalysisFields(ar.Industry, ar.Technology, ar.Market); err != nil {
		return analysis.Request{}, invalid(err)
	}

	file, header, err := req.FormFile(fieldAttachment)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return ar, nil
	case err != nil:
		return analysis.Request{}, invalid(err)
	}
	defer file.Close()

	att, err := r.readAttachment(file, header)
	if err != nil {
		return analysis.Request{}, err
	}
	ar.Attachment = att
	return ar, nil
}

func (r *Router) readAttachment(file multipart.File, header *multipart.FileHeader) (*analysis.Attachment, error) {
	// an empty file input still posts a part with no filename
	if header.Filename == "" && header.Size == 0 {
		return nil, nil
	}
	if err := middleware.ValidateAttachmentSize(header.Size, r.maxUpload); err != nil {
		return nil, invalid(err)
	}
	data, err := io.ReadAll(io.LimitReader(file, r.maxUpload+1))
	if err != nil {
		return nil, invalid(err)
	}
	if err := middleware.ValidateAttachmentSize(int64(len(data)), r.maxUpload); err != nil {
		return nil, invalid(err)
	}
	mediaType, err := middleware.AttachmentType(header.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, invalid(err)
	}
	return &analysis.Attachment{Filename: header.Filename, MIMEType: mediaType, Data: data}, nil
}

func sessionID(req *http.Request) (session.ID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return "", fmt.Errorf("%w: %v", session.ErrNotFound, err)
	}
	return session.ID(id), nil
}

// POST /v1/sessions
func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) error {
	sess, err := r.sessions.Create(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, sess)
}

// GET /v1/sessions/{id}
func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	sess, err := r.sessions.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, sess)
}

// DELETE /v1/sessions/{id}
func (r *Router) handleResetSession(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	if err := r.sessions.Reset(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/sessions/{id}/analysis
// Multipart form: industry, technology, market, optional attachment.
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}
	ar, err := r.readRequest(w, req)
	if err != nil {
		return err
	}
	if err := r.sessions.Submit(req.Context(), id, ar); err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     id,
		"state":  session.StateAnalyzing,
		"status": "/v1/sessions/" + string(id),
	})
}

// GET /v1/sessions/{id}/chart.svg, /v1/sessions/{id}/chart.png
func (r *Router) handleChart(format render.Format) handlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		id, err := sessionID(req)
		if err != nil {
			return err
		}
		sess, err := r.sessions.Get(req.Context(), id)
		if err != nil {
			return err
		}
		if sess.State != session.StateCompleted || !sess.Report.HasMatrix() {
			return errNoChart
		}
		img, err := r.charts.RenderMatrix(sess.Report.Matrix, format)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Cache-Control", "no-cache")
		_, err = w.Write(img)
		return err
	}
}

// POST /v1/analyze
// Runs one analysis synchronously and returns the report with its settled prices.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	ar, err := r.readRequest(w, req)
	if err != nil {
		return err
	}
	rep, err := r.analysis.Analyze(req.Context(), ar)
	if err != nil {
		return err
	}

	prices := appquotes.Slots(rep.Stocks)
	if r.quotes != nil {
		prices = r.quotes.Resolve(req.Context(), prices, nil)
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"report": rep,
		"prices": prices,
	})
}

// GET /v1/quotes/{symbol}
func (r *Router) handleQuote(w http.ResponseWriter, req *http.Request) error {
	symbol := chi.URLParam(req, "symbol")
	if err := middleware.ValidateSymbol(symbol); err != nil {
		return invalid(err)
	}
	if r.quotes == nil {
		return quote.ErrNoLiveData
	}
	q, err := r.quotes.Lookup(req.Context(), symbol)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, q)
}

// GET /v1/reports?industry=&market=&page=&page_size=
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page < 1 {
		page = 1
	}

	list, err := r.analysis.List(req.Context(), analysis.ListFilter{
		Industry: middleware.SanitizeString(q.Get("industry")),
		Market:   middleware.SanitizeString(q.Get("market")),
		Page:     page,
		PageSize: middleware.ValidateLimit(size),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/reports/{id}
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return fmt.Errorf("%w: %v", analysis.ErrReportNotFound, err)
	}
	rep, err := r.analysis.Get(req.Context(), analysis.ReportID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}
