package delivery

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/apex/log"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxUploadSize = 10 << 20

var navScreens = []domain.Screen{domain.ScreenHome, domain.ScreenScan, domain.ScreenHistory, domain.ScreenProfile}

var templateFuncs = template.FuncMap{
	"navItems": func() []domain.Screen { return navScreens },
	"navLabel": func(s domain.Screen) string {
		switch s {
		case domain.ScreenScan:
			return "Scan"
		case domain.ScreenHistory:
			return "History"
		case domain.ScreenProfile:
			return "Profile"
		default:
			return "Home"
		}
	},
	"answerChoices": func() []domain.Answer {
		return []domain.Answer{domain.AnswerYes, domain.AnswerNo, domain.AnswerNA}
	},
	"answerLabel": func(a domain.Answer) string {
		switch a {
		case domain.AnswerYes:
			return "Yes"
		case domain.AnswerNo:
			return "No"
		default:
			return "N/A"
		}
	},
}

type PublicHandler struct {
	inspectionUC *usecase.InspectionUseCase
	reportUC     *usecase.ReportUseCase
	sessions     *SessionStore
	labels       domain.LabelReader
	tmpl         *template.Template
	decoder      *schema.Decoder
	log          log.Interface
}

// NewPublicHandler wires the technician-facing pages. labels may be nil, in which
// case label photos are refused.
func NewPublicHandler(inspectionUC *usecase.InspectionUseCase, reportUC *usecase.ReportUseCase, sessions *SessionStore, labels domain.LabelReader, logger log.Interface) *PublicHandler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &PublicHandler{
		inspectionUC: inspectionUC,
		reportUC:     reportUC,
		sessions:     sessions,
		labels:       labels,
		tmpl:         template.Must(template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")),
		decoder:      decoder,
		log:          logger,
	}
}

func (h *PublicHandler) Register(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/navigate/{screen}", h.handleNavigate).Methods(http.MethodPost)
	r.HandleFunc("/scan/frame", h.handleScanFrame).Methods(http.MethodPost)
	r.HandleFunc("/scan/error", h.handleScanError).Methods(http.MethodPost)
	r.HandleFunc("/scan/manual", h.handleScanManual).Methods(http.MethodPost)
	r.HandleFunc("/scan/label", h.handleScanLabel).Methods(http.MethodPost)
	r.HandleFunc("/scan/status", h.handleScanStatus).Methods(http.MethodGet)
	r.HandleFunc("/inspection/start", h.handleStartInspection).Methods(http.MethodPost)
	r.HandleFunc("/inspection/answer", h.handleAnswer).Methods(http.MethodPost)
	r.HandleFunc("/inspection/name", h.handleInspectorName).Methods(http.MethodPost)
	r.HandleFunc("/inspection/submit", h.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/inspection/state", h.handleInspectionState).Methods(http.MethodGet)
	r.HandleFunc("/history/export.csv", h.handleExportCSV).Methods(http.MethodGet)
	r.HandleFunc("/result/report.pdf", h.handleReportPDF).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
}

func (h *PublicHandler) render(w http.ResponseWriter, r *http.Request, view usecase.SessionView, alert string, facing domain.Facing) {
	renderData := map[string]interface{}{
		"View":      view,
		"Alert":     alert,
		"Facing":    facing,
		"CSRFField": csrf.TemplateField(r),
		"CSRFToken": csrf.Token(r),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "layout", renderData); err != nil {
		h.log.WithError(err).Error("rendering page")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *PublicHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("writing json response")
	}
}

func (h *PublicHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, feed := h.sessions.Get(w, r)
	alert := sess.TakeAlert()
	h.render(w, r, h.inspectionUC.View(sess), alert, feed.Facing())
}

func (h *PublicHandler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	screen := domain.Screen(mux.Vars(r)["screen"])
	if err := h.inspectionUC.Navigate(sess, screen); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// scanStatus is polled by the scan page. Resolving is set while a decoded id is
// being looked up: the camera is released but the screen has not changed yet.
type scanStatus struct {
	State     usecase.ScannerState `json:"state"`
	Status    string               `json:"status"`
	Screen    domain.Screen        `json:"screen"`
	Facing    domain.Facing        `json:"facing"`
	Wanted    bool                 `json:"wanted"`
	Resolving bool                 `json:"resolving"`
}

func (h *PublicHandler) scanStatusFor(sess *usecase.Session, feed FrameFeed) scanStatus {
	st := scanStatus{
		State:  sess.Scanner().State(),
		Status: sess.Scanner().Status(),
		Screen: sess.Screen(),
		Facing: feed.Facing(),
		Wanted: feed.Wanted(),
	}
	st.Resolving = st.Screen == domain.ScreenScan &&
		st.State == usecase.ScannerStopped &&
		st.Status != usecase.StatusCameraError
	return st
}

func (h *PublicHandler) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	sess, feed := h.sessions.Get(w, r)
	h.writeJSON(w, http.StatusOK, h.scanStatusFor(sess, feed))
}

func (h *PublicHandler) handleScanFrame(w http.ResponseWriter, r *http.Request) {
	sess, feed := h.sessions.Get(w, r)
	data, err := readUpload(r, "frame")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := feed.PushEncoded(data); err != nil {
		// nothing is listening; the page stops streaming on 409
		if !feed.Wanted() {
			h.writeJSON(w, http.StatusConflict, h.scanStatusFor(sess, feed))
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusAccepted, h.scanStatusFor(sess, feed))
}

func (h *PublicHandler) handleScanError(w http.ResponseWriter, r *http.Request) {
	sess, feed := h.sessions.Get(w, r)
	feed.Fail()
	h.log.WithField("session", sess.ID).Warn("browser reported camera failure")
	w.WriteHeader(http.StatusNoContent)
}

func (h *PublicHandler) handleScanManual(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	var form struct {
		EquipmentID string `schema:"equipment_id"`
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.decoder.Decode(&form, r.PostForm); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.inspectionUC.HandleScanResult(r.Context(), sess, form.EquipmentID, nil)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PublicHandler) handleScanLabel(w http.ResponseWriter, r *http.Request) {
	if h.labels == nil {
		http.Error(w, "label reading is disabled", http.StatusNotFound)
		return
	}
	sess, _ := h.sessions.Get(w, r)
	data, err := readUpload(r, "photo")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// an unreadable label is reported through the session alert
	_ = h.inspectionUC.HandleLabelPhoto(r.Context(), sess, h.labels, data)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func readUpload(r *http.Request, field string) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %s upload: %w", field, err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxUploadSize))
}

func (h *PublicHandler) handleStartInspection(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	if err := h.inspectionUC.StartInspection(sess); err != nil {
		h.log.WithError(err).WithField("session", sess.ID).Info("inspection not started")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type answerRequest struct {
	Question string `schema:"question"`
	Value    string `schema:"value"`
}

func (h *PublicHandler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	var req answerRequest
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.decoder.Decode(&req, r.PostForm); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	control, err := h.inspectionUC.RecordAnswer(sess, domain.Question(req.Question), req.Value)
	if err != nil {
		h.writeJSON(w, statusFor(err), map[string]interface{}{"error": err.Error(), "submit": control})
		return
	}
	h.writeJSON(w, http.StatusOK, control)
}

func (h *PublicHandler) handleInspectorName(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	control, err := h.inspectionUC.SetInspectorName(sess, r.PostFormValue("inspector_name"))
	if err != nil {
		h.writeJSON(w, statusFor(err), map[string]interface{}{"error": err.Error(), "submit": control})
		return
	}
	h.writeJSON(w, http.StatusOK, control)
}

func (h *PublicHandler) handleInspectionState(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"screen": sess.Screen(),
		"submit": sess.SubmitState(),
	})
}

// submitForm is the whole inspection form, for browsers that post it in one go.
type submitForm struct {
	Pressure      string `schema:"pressure"`
	Damage        string `schema:"damage"`
	Seal          string `schema:"seal"`
	Label         string `schema:"label"`
	Weight        string `schema:"weight"`
	Hose          string `schema:"hose"`
	Expiry        string `schema:"expiry"`
	InspectorName string `schema:"inspector_name"`
	Remarks       string `schema:"remarks"`
}

func (f submitForm) answers() map[domain.Question]string {
	return map[domain.Question]string{
		domain.QuestionPressure: f.Pressure,
		domain.QuestionDamage:   f.Damage,
		domain.QuestionSeal:     f.Seal,
		domain.QuestionLabel:    f.Label,
		domain.QuestionWeight:   f.Weight,
		domain.QuestionHose:     f.Hose,
		domain.QuestionExpiry:   f.Expiry,
	}
}

func (h *PublicHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var form submitForm
	if err := h.decoder.Decode(&form, r.PostForm); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger := h.log.WithField("session", sess.ID)
	if err := h.applyForm(sess, r, form); err != nil {
		logger.WithError(err).Info("submit form not applied")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if _, err := h.inspectionUC.Submit(r.Context(), sess); err != nil {
		logger.WithError(err).Info("inspection not submitted")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PublicHandler) applyForm(sess *usecase.Session, r *http.Request, form submitForm) error {
	answers := form.answers()
	for _, q := range domain.Questions {
		if answers[q] == "" {
			continue
		}
		if _, err := h.inspectionUC.RecordAnswer(sess, q, answers[q]); err != nil {
			return err
		}
	}
	if _, ok := r.PostForm["inspector_name"]; ok {
		if _, err := h.inspectionUC.SetInspectorName(sess, form.InspectorName); err != nil {
			return err
		}
	}
	if _, ok := r.PostForm["remarks"]; ok {
		if err := h.inspectionUC.SetRemarks(sess, form.Remarks); err != nil {
			return err
		}
	}
	return nil
}

func (h *PublicHandler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	data, err := h.reportUC.ExportHistoryCSV(sess.Inspections())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=inspections.csv")
	w.Write(data)
}

func (h *PublicHandler) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(w, r)
	rec, ok := sess.LastRecord()
	if !ok {
		http.Error(w, "No inspection submitted yet", http.StatusNotFound)
		return
	}
	data, err := h.reportUC.ExportInspectionPDF(rec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=inspection_%s.pdf", rec.EquipmentID))
	w.Write(data)
}

func (h *PublicHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrNoInspection):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrUnknownQuestion), errors.Is(err, usecase.ErrInvalidAnswer):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
