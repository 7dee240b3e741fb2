// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"au-electorates/internal/logger"
	"au-electorates/internal/metrics"
	"au-electorates/internal/model"
	"au-electorates/pkg/admingate"
	"au-electorates/pkg/electorates"
)

// 请求体上限：批量校验只接收名称数组
const maxBody = 1 << 20

type handler struct {
	svc  *electorates.Service
	rc   *redis.Client
	gate *admingate.Gate
}

// 文档注释：构建并返回 API 路由
// 背景：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀；gate 为 nil 时不注册管理接口。
// 约束：每个路由都带请求计数与耗时指标；错误统一为 JSON {"error": ...}。
func BuildRoutes(svc *electorates.Service, rc *redis.Client, gate *admingate.Gate) *http.ServeMux {
	h := &handler{svc: svc, rc: rc, gate: gate}
	mux := http.NewServeMux()
	route := func(pattern, name string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(name, fn))
	}
	route("GET /divisions", "divisions", h.listDivisions)
	route("GET /divisions/{name}", "division", h.getDivision)
	route("GET /divisions/{name}/map", "division_map", h.divisionMap)
	route("GET /states/{state}/map", "state_map", h.stateMap)
	route("GET /country/map", "country_map", h.countryMap)
	route("POST /validate", "validate", h.validate)
	route("GET /elections", "elections", h.listElections)
	route("GET /elections/{parliament}", "election", h.getElection)
	route("GET /parties", "parties", h.listParties)
	route("GET /parties/{party}", "party", h.getParty)
	route("GET /postcodes/{code}", "postcode", h.getPostcode)
	route("GET /stats", "stats", h.stats)
	if gate != nil {
		mux.Handle("POST /admin/loadall", gate.Wrap(instrument("admin_loadall", http.HandlerFunc(h.loadAll))))
		mux.Handle("POST /admin/export", gate.Wrap(instrument("admin_export", http.HandlerFunc(h.export))))
	}
	return mux
}

func instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.RequestsTotal.WithLabelValues(name).Inc()
		metrics.RequestDurationMs.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, contentType string, b []byte) {
	w.Header().Set("content-type", contentType)
	w.Header().Set("cache-control", "public, max-age=86400")
	_, _ = w.Write(b)
}

// 文档注释：错误到状态码的映射
// 约束：未找到 404；周期不匹配 409（选区存在，只是该周期没有边界）；批量校验 422 并带回全部名称；其余 500。
func writeError(w http.ResponseWriter, err error) {
	var names *model.NamesNotFoundError
	switch {
	case errors.As(err, &names):
		writeJSON(w, http.StatusUnprocessableEntity, errorView{Error: err.Error(), Names: names.Names})
	case errors.Is(err, model.ErrEpochMismatch):
		writeJSON(w, http.StatusConflict, errorView{Error: err.Error()})
	case errors.Is(err, model.ErrDivisionNotFound):
		notFound(w, "division", err)
	case errors.Is(err, model.ErrElectionNotFound):
		notFound(w, "election", err)
	case errors.Is(err, model.ErrPartyNotFound):
		notFound(w, "party", err)
	case errors.Is(err, model.ErrPostcodeNotFound):
		notFound(w, "postcode", err)
	case errors.Is(err, model.ErrMapNotFound):
		notFound(w, "map", err)
	default:
		logger.L().Error("api_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorView{Error: "internal error"})
	}
}

func notFound(w http.ResponseWriter, kind string, err error) {
	metrics.NotFoundTotal.WithLabelValues(kind).Inc()
	writeJSON(w, http.StatusNotFound, errorView{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorView{Error: msg})
}

// epochParam：epoch 查询参数，缺省为当前周期
func epochParam(r *http.Request) (model.Epoch, error) {
	s := r.URL.Query().Get("epoch")
	if s == "" {
		return model.Epoch2019, nil
	}
	return model.ParseEpoch(s)
}

func (h *handler) listDivisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		epoch model.Epoch
		state model.State
		err   error
	)
	if s := q.Get("epoch"); s != "" {
		if epoch, err = model.ParseEpoch(s); err != nil {
			badRequest(w, err.Error())
			return
		}
	}
	if s := q.Get("state"); s != "" {
		if state, err = model.ParseState(s); err != nil {
			badRequest(w, err.Error())
			return
		}
	}
	out := make([]divisionSummary, 0)
	for _, d := range h.svc.Divisions() {
		if epoch != "" && !d.ExistsIn(epoch) {
			continue
		}
		if state != "" && d.State != state {
			continue
		}
		out = append(out, toSummary(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getDivision(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Find(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	key := "div:" + d.ShortName
	if b, ok := cacheGet(r.Context(), h.rc, key); ok {
		w.Header().Set("x-cache", "hit")
		writeRaw(w, "application/json; charset=utf-8", b)
		return
	}
	b, err := json.Marshal(toDivision(d))
	if err != nil {
		writeError(w, err)
		return
	}
	cacheSet(r.Context(), h.rc, key, b)
	writeRaw(w, "application/json; charset=utf-8", b)
}

func (h *handler) divisionMap(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Find(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := epochParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	doc, err := h.svc.MapFor(d, e)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, "application/geo+json", doc.Raw)
}

func (h *handler) stateMap(w http.ResponseWriter, r *http.Request) {
	st, err := model.ParseState(r.PathValue("state"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	e, err := epochParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	doc, err := h.svc.StateMap(e, st)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, "application/geo+json", doc.Raw)
}

func (h *handler) countryMap(w http.ResponseWriter, r *http.Request) {
	e, err := epochParam(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	doc, err := h.svc.CountryMap(e)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, "application/geo+json", doc.Raw)
}

func (h *handler) validate(w http.ResponseWriter, r *http.Request) {
	var names []string
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(&names); err != nil {
		badRequest(w, "body must be a JSON array of division names")
		return
	}
	if err := h.svc.Validate(names...); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "count": len(names)})
}

func (h *handler) listElections(w http.ResponseWriter, _ *http.Request) {
	els := h.svc.Elections()
	out := make([]electionView, 0, len(els))
	for _, e := range els {
		out = append(out, toElection(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getElection(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("parliament"))
	if err != nil {
		badRequest(w, "parliament must be an integer")
		return
	}
	e, err := h.svc.FindElection(n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toElection(e))
}

func (h *handler) listParties(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Parties())
}

func (h *handler) getParty(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.FindParty(r.PathValue("party"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) getPostcode(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.FindPostcode(r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLocality(l))
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{}
	for e, s := range h.svc.Stats() {
		c := h.svc.Cache(e)
		out[string(e)] = map[string]any{
			"hits":      s.Hits,
			"misses":    s.Misses,
			"decodes":   s.Decodes,
			"divisions": len(c.LoadedDivisions()),
			"states":    len(c.LoadedStates()),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) loadAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.svc.LoadAll(r.Context()); err != nil {
		logger.L().Error("admin_loadall_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
		return
	}
	logger.L().Info("admin_loadall_done", "ms", time.Since(start).Milliseconds())
	w.WriteHeader(http.StatusNoContent)
}

// export：导出到 EXPORT_DIR（默认 ./export）；overwrite=true 强制覆盖
func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	dst := os.Getenv("EXPORT_DIR")
	if dst == "" {
		dst = "export"
	}
	overwrite := strings.EqualFold(r.URL.Query().Get("overwrite"), "true")
	rep, err := h.svc.Export(dst, overwrite)
	if err != nil {
		logger.L().Error("admin_export_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dir": dst, "written": len(rep.Written), "skipped": len(rep.Skipped)})
}
