package editor

import (
	"github.com/bigkaa/licitaciones-workbench/internal/domain/model"
)

// Nest собирает дерево тендера из связанных таблиц детализации.
// Члены консорциума привязываются к адъюдикации по общему id_contrato.
// Адъюдикация без собственного id_contrato получает его из строки contratos
// с её id_adjudicacion. Строки членства без подходящей адъюдикации
// возвращаются отдельно.
// Функция чистая: вход не изменяется.
func Nest(d model.Detail) (model.Licitacion, []model.ConsorcioRow) {
	contractByAward := make(map[string]string, len(d.Contratos))
	for _, c := range d.Contratos {
		if c.IDAdjudicacion == "" || c.IDContrato == "" {
			continue
		}
		if _, ok := contractByAward[c.IDAdjudicacion]; !ok {
			contractByAward[c.IDAdjudicacion] = c.IDContrato
		}
	}

	membersByContract := make(map[string][]model.ConsorcioMember)
	for _, row := range d.Consorcios {
		membersByContract[row.IDContrato] = append(membersByContract[row.IDContrato], row.ConsorcioMember)
	}

	tree := d.Licitacion.Clone()
	tree.Adjudicaciones = make([]model.Adjudicacion, 0, len(d.Adjudicaciones))
	matched := make(map[string]bool)

	for _, a := range d.Adjudicaciones {
		award := a.Clone()
		if award.IDContrato == "" && award.IDAdjudicacion != "" {
			award.IDContrato = contractByAward[award.IDAdjudicacion]
		}
		award.Consorcios = []model.ConsorcioMember{}
		if award.IDContrato != "" {
			award.Consorcios = append(award.Consorcios, membersByContract[award.IDContrato]...)
			matched[award.IDContrato] = true
		}
		tree.Adjudicaciones = append(tree.Adjudicaciones, award)
	}

	var orphans []model.ConsorcioRow
	for _, row := range d.Consorcios {
		if !matched[row.IDContrato] {
			orphans = append(orphans, row)
		}
	}
	return tree, orphans
}

// Flatten раскладывает дерево тендера в связанные таблицы.
// Члены консорциума адъюдикации без id_contrato в таблицы не попадают.
// Для дерева, где у каждой адъюдикации с членами есть id_contrato,
// Nest(Flatten(t)) воспроизводит t.
func Flatten(l model.Licitacion) model.Detail {
	d := model.Detail{
		Licitacion:     l.Clone(),
		Adjudicaciones: make([]model.Adjudicacion, 0, len(l.Adjudicaciones)),
		Contratos:      []model.ContratoRow{},
		Consorcios:     []model.ConsorcioRow{},
	}
	d.Licitacion.Adjudicaciones = nil

	for _, a := range l.Adjudicaciones {
		row := a.Clone()
		row.Consorcios = nil
		d.Adjudicaciones = append(d.Adjudicaciones, row)

		if a.IDContrato == "" {
			continue
		}
		d.Contratos = append(d.Contratos, model.ContratoRow{
			IDContrato:     a.IDContrato,
			IDAdjudicacion: a.IDAdjudicacion,
		})
		for _, m := range a.Consorcios {
			d.Consorcios = append(d.Consorcios, model.ConsorcioRow{IDContrato: a.IDContrato, ConsorcioMember: m})
		}
	}
	return d
}
