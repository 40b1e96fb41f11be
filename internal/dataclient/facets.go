package dataclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// facetPaths — пути отдельных словарей, не входящих в /api/filtros/opciones.
var facetPaths = map[model.FacetName]string{
	model.FacetCategorias:    "/api/filtros/categorias",
	model.FacetCompradores:   "/api/filtros/compradores",
	model.FacetAnios:         "/api/filtros/anios",
	model.FacetMeses:         "/api/filtros/meses",
	model.FacetTiposGarantia: "/api/filtros/tipos-garantia",
}

// optionList — список значений словаря. Сервис отдаёт годы и месяцы
// числами, остальное строками; всё приводится к строкам.
type optionList []string

func (o *optionList) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			if val != "" {
				out = append(out, val)
			}
		case float64:
			out = append(out, strconv.FormatFloat(val, 'f', -1, 64))
		}
	}
	*o = out
	return nil
}

// optionsResponse — ответ словарных endpoint'ов: {"data": [...]}.
type optionsResponse struct {
	Data optionList `json:"data"`
}

// GetGlobalOptions запрашивает глобальный набор словарей.
// GET /api/filtros/opciones
func (c *Client) GetGlobalOptions(ctx context.Context) (model.GlobalOptions, error) {
	var opts model.GlobalOptions
	if err := c.do(ctx, "GetGlobalOptions", http.MethodGet, "/api/filtros/opciones", nil, nil, &opts); err != nil {
		return model.GlobalOptions{}, err
	}
	return opts, nil
}

// GetFacet запрашивает отдельный глобальный словарь (categorias, compradores, ...).
func (c *Client) GetFacet(ctx context.Context, name model.FacetName) ([]string, error) {
	path, ok := facetPaths[name]
	if !ok {
		return nil, fmt.Errorf("словарь %q не загружается отдельным запросом", name)
	}
	return c.getOptions(ctx, "GetFacet", path, nil)
}

// GetProvinces запрашивает провинции департамента.
// GET /api/filtros/provincias?departamento=
func (c *Client) GetProvinces(ctx context.Context, departamento string) ([]string, error) {
	q := url.Values{"departamento": {departamento}}
	return c.getOptions(ctx, "GetProvinces", "/api/filtros/provincias", q)
}

// GetDistricts запрашивает округа провинции.
// GET /api/filtros/distritos?departamento=&provincia=
func (c *Client) GetDistricts(ctx context.Context, departamento, provincia string) ([]string, error) {
	q := url.Values{"provincia": {provincia}}
	if departamento != "" {
		q.Set("departamento", departamento)
	}
	return c.getOptions(ctx, "GetDistricts", "/api/filtros/distritos", q)
}

func (c *Client) getOptions(ctx context.Context, op, path string, q url.Values) ([]string, error) {
	var resp optionsResponse
	if err := c.do(ctx, op, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}
	return []string(resp.Data), nil
}
