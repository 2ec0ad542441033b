package taxonomy

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load читает таксономию из YAML. Отсутствующие секции берутся из встроенной,
// так что файл может переопределить только таблицы алиасов.
//
//	exams:
//	  - id: MHTCET
//	    tokens: [MHT, CET]
//	category_aliases:
//	  open: [OPEN, OPEN-L]
func Load(path string) (*Taxonomy, error) {
	// "::" сохраняет ключи вроде "home university" или "st.l" целыми.
	k := koanf.New("::")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
	}

	var fromFile Spec
	if err := k.Unmarshal("", &fromFile); err != nil {
		return nil, fmt.Errorf("taxonomy: decode %s: %w", path, err)
	}

	spec := DefaultSpec()
	if len(fromFile.Exams) > 0 {
		spec.Exams = fromFile.Exams
	}
	if len(fromFile.Categories) > 0 {
		spec.Categories = fromFile.Categories
	}
	if len(fromFile.SeatTypes) > 0 {
		spec.SeatTypes = fromFile.SeatTypes
	}
	if len(fromFile.CategoryAliases) > 0 {
		spec.CategoryAliases = fromFile.CategoryAliases
	}
	if len(fromFile.SeatTypeAliases) > 0 {
		spec.SeatTypeAliases = fromFile.SeatTypeAliases
	}
	return New(spec)
}
