package dispatch

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/compute"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/textnorm"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/upstream"
)

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// recordText renders one row as "- column: value" lines under a bold title.
func recordText(title string, ds *dataset.Dataset, row int) string {
	var b strings.Builder
	b.WriteString("**" + title + ":**\n")
	for i, col := range ds.Columns {
		fmt.Fprintf(&b, "- %s: %s\n", col, ds.Rows[row][i])
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) storeData(_ context.Context, req Request) (Response, error) {
	name := first(req.Entities.Stores)
	if name == "" {
		return Response{Text: "Lütfen hangi mağaza hakkında bilgi istediğinizi belirtin.", Type: TypeData}, nil
	}

	for _, ds := range req.Datasets.WithRole(dataset.RoleStore) {
		row, ok := ds.FindRow(dataset.RoleStore, name)
		if !ok {
			continue
		}

		var labels []string
		var values []float64
		for i, col := range ds.Columns {
			if !strings.Contains(textnorm.Fold(col), "ciro") {
				continue
			}
			if v, ok := compute.ParseNumber(ds.Rows[row][i]); ok {
				labels = append(labels, col)
				values = append(values, v)
			}
		}

		resp := Response{
			Text:    recordText(name+" Mağazası Verileri", ds, row),
			Type:    TypeData,
			Details: map[string]any{"dataset": ds.Name, "store": name},
		}
		if len(labels) > 0 {
			resp.Chart = &compute.Chart{
				Type:   "bar",
				Title:  name + " Ciro Bilgileri",
				Labels: labels,
				Series: []compute.Series{{Name: "Ciro", Data: values}},
			}
		}
		return resp, nil
	}
	return Response{}, apperr.NotFound("store", name, fmt.Sprintf("'%s' adlı mağaza için veri bulunamadı.", name))
}

// employeeData shows one employee's row, or lists everyone when the query
// names no employee.
func (d *Dispatcher) employeeData(ctx context.Context, req Request) (Response, error) {
	name := first(req.Entities.Employees)
	if name == "" {
		return d.listEmployees(ctx, req)
	}

	for _, ds := range req.Datasets.WithRole(dataset.RoleEmployee) {
		row, ok := ds.FindRow(dataset.RoleEmployee, name)
		if !ok {
			continue
		}
		return Response{
			Text:    recordText(name+" Çalışan Bilgileri", ds, row),
			Type:    TypeData,
			Details: map[string]any{"dataset": ds.Name, "employee": name},
		}, nil
	}
	return Response{}, apperr.NotFound("employee", name, fmt.Sprintf("'%s' adlı çalışan için veri bulunamadı.", name))
}

func (d *Dispatcher) listEmployees(_ context.Context, req Request) (Response, error) {
	var names []string
	for _, n := range req.Datasets.Names(dataset.RoleEmployee) {
		if !compute.IsMissing(n) {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return Response{}, apperr.NotFound("employee", "", "Sistemde çalışan verisi bulunamadı.")
	}
	collate.New(language.Turkish).SortStrings(names)

	return Response{
		Text: fmt.Sprintf("Toplam **%s** çalışan bulundu:\n- %s",
			compute.FormatCount(len(names)), strings.Join(names, "\n- ")),
		Type:    TypeData,
		Details: map[string]any{"employee_count": len(names)},
	}, nil
}

func (d *Dispatcher) countDepartment(_ context.Context, req Request) (Response, error) {
	dept := first(req.Entities.Departments)
	if dept == "" {
		resolved, ok := d.engine.ResolveDepartment(req.Query, req.Datasets)
		if !ok {
			return Response{Text: "Hangi departmanı saymamı istediğinizi anlayamadım.", Type: TypeData}, nil
		}
		dept = resolved
	}

	res, err := compute.DepartmentHeadcount(textnorm.Title(dept), req.Datasets)
	if err != nil {
		return Response{}, err
	}
	return FromResult(res, TypeData), nil
}

func (d *Dispatcher) webSearch(ctx context.Context, req Request) (Response, error) {
	if d.web == nil {
		return Response{}, &apperr.UpstreamError{Service: "web", Kind: apperr.UpstreamConfig}
	}
	results, err := d.web.Search(ctx, req.Query)
	if apperr.IsKind(err, apperr.UpstreamEmpty) {
		return Response{Text: fmt.Sprintf("'%s' için internette sonuç bulunamadı.", req.Query), Type: TypeWeb}, nil
	}
	if err != nil {
		return Response{}, err
	}
	return webResponse(results), nil
}

func webResponse(results []upstream.WebResult) Response {
	return Response{
		Text:    upstream.FormatResults(results),
		Type:    TypeWeb,
		Details: map[string]any{"result_count": len(results)},
	}
}
