// ABOUTME: HTTP handlers for experiment CRUD, CSV upload and CSV download.
// ABOUTME: Validation happens before any storage access.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/harperreed/rocketry/internal/ingest"
	"github.com/harperreed/rocketry/internal/logging"
	"github.com/harperreed/rocketry/internal/models"
	"github.com/harperreed/rocketry/internal/storage"
	"github.com/harperreed/rocketry/internal/trajectory"
	"github.com/harperreed/rocketry/internal/validation"
)

var errBodyTooLarge = errors.New("request body too large")

// csvContentTypes are upload types that do not trigger a warning.
var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
	"application/octet-stream": true,
}

type listResponse struct {
	Experiments []*models.Experiment `json:"experimentos"`
}

type detailResponse struct {
	Experiment *models.Experiment      `json:"experimento"`
	Records    []models.EnrichedRecord `json:"dados_associados"`
}

type createResponse struct {
	Message  string `json:"mensagem"`
	ID       int64  `json:"experimento_id"`
	Name     string `json:"nome_experimento"`
	Date     string `json:"data_experimento"`
	Filename string `json:"nome_arquivo_csv"`
	Accepted int    `json:"registros_csv_processados"`
	Rejected int    `json:"registros_csv_rejeitados"`
}

type statusResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("database ping failed")
		respondJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", Database: "ok"})
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	list, err := withRepo(r.Context(), s, func(ctx context.Context, repo storage.Repository) ([]*models.Experiment, error) {
		return repo.ListExperiments(ctx)
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Experiments: list})
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	resp, err := withRepo(r.Context(), s, func(ctx context.Context, repo storage.Repository) (*detailResponse, error) {
		e, records, err := repo.GetExperiment(ctx, id)
		if err != nil {
			return nil, err
		}
		return &detailResponse{Experiment: e, Records: trajectory.Enrich(records)}, nil
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	log := logging.Ctx(r.Context())

	if err := s.parseForm(w, r); err != nil {
		respondErr(w, r, err)
		return
	}

	exp, err := experimentFromForm(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	file, header, err := r.FormFile("arquivoDados")
	if err != nil {
		respondErr(w, r, validation.NewError("arquivoDados", "arquivoDados is required"))
		return
	}
	defer file.Close()

	upload := struct {
		Filename string `form:"arquivoDados" validate:"required,csvfile"`
	}{Filename: header.Filename}
	if err := validation.Struct(upload); err != nil {
		respondErr(w, r, err)
		return
	}
	if ct := uploadContentType(header); !csvContentTypes[ct] {
		log.Warn().Str("content_type", ct).Str("filename", header.Filename).Msg("unexpected upload content type")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondErr(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	type created struct {
		id  int64
		res *ingest.Result
	}
	out, err := withRepo(r.Context(), s, func(ctx context.Context, repo storage.Repository) (created, error) {
		id, err := repo.CreateExperiment(ctx, exp)
		if err != nil {
			return created{}, err
		}
		c := created{id: id, res: &ingest.Result{}}
		if len(bytes.TrimSpace(data)) == 0 {
			logging.Ctx(ctx).Info().Str("filename", header.Filename).Msg("uploaded csv is empty")
			return c, nil
		}
		res, err := s.pipeline.Ingest(ctx, repo, id, data)
		if err != nil {
			// the experiment row stays; it is not rolled back
			logging.Ctx(ctx).Warn().Err(err).Int64("experiment_id", id).Msg("experiment created but csv ingestion failed")
			return c, err
		}
		c.res = res
		return c, nil
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, createResponse{
		Message:  "Experimento e dados do CSV processados e salvos com sucesso!",
		ID:       out.id,
		Name:     exp.Name,
		Date:     exp.Date.String(),
		Filename: header.Filename,
		Accepted: out.res.Accepted,
		Rejected: out.res.Rejected,
	})
}

func (s *Server) handleReplaceExperiment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.parseForm(w, r); err != nil {
		respondErr(w, r, err)
		return
	}
	exp, err := experimentFromForm(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	affected, err := withRepo(r.Context(), s, func(ctx context.Context, repo storage.Repository) (int64, error) {
		return repo.ReplaceExperiment(ctx, id, exp)
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if affected == 0 {
		respondErr(w, r, storage.ErrNotFound)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Experimento com ID %d atualizado com sucesso!", id),
	})
}

func (s *Server) handleDeleteExperiment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	affected, err := withRepo(r.Context(), s, func(ctx context.Context, repo storage.Repository) (int64, error) {
		return repo.DeleteExperiment(ctx, id)
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if affected == 0 {
		respondErr(w, r, storage.ErrNotFound)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Experimento com ID %d deletado com sucesso!", id),
	})
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	type export struct {
		name string
		body []byte
	}
	out, err := withRepo(r.Context(), s, func(ctx context.Context, repo storage.Repository) (export, error) {
		e, records, err := repo.GetExperiment(ctx, id)
		if err != nil {
			return export{}, err
		}
		var buf bytes.Buffer
		if err := trajectory.WriteCSV(&buf, trajectory.Enrich(records)); err != nil {
			return export{}, err
		}
		return export{name: e.Name, body: buf.Bytes()}, nil
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": out.name + ".csv",
	}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to write csv download")
	}
}

// parseID reads the {id} path parameter, writing a 400 when it is not an integer.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("id inválido: %q", raw))
		return 0, false
	}
	return id, true
}

// parseForm accepts multipart and urlencoded bodies up to the configured size.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	limit := s.cfg.Server.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	err := r.ParseMultipartForm(limit)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit %d MB", errBodyTooLarge, s.cfg.Server.MaxUploadMB)
		}
		return validation.NewError("form", "invalid form body: "+err.Error())
	}
	return nil
}

func experimentFromForm(r *http.Request) (*models.Experiment, error) {
	in := validation.ExperimentInput{
		Name:           r.FormValue("nomeExperimento"),
		TargetDistance: r.FormValue("distanciaAlvo"),
		Date:           r.FormValue("dataExperimento"),
		PressureBar:    r.FormValue("pressaoBar"),
		WaterVolume:    r.FormValue("volumeAgua"),
		RocketMass:     r.FormValue("massaTotalFoguete"),
	}
	return in.Experiment()
}

func uploadContentType(h *multipart.FileHeader) string {
	ct := h.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
