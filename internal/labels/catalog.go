// Package labels реализует каталог меток. Каталог загружается один раз
// из JSON-файла и далее используется как неизменяемая таблица поиска
// на всё время жизни процесса.
package labels

import (
	"encoding/json"
	"fmt"
	"os"
)

// Label описывает элемент каталога. Preferable отличает метки, на которые
// пользователь может подписаться, от меток, используемых только для
// классификации объявлений.
type Label struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Preferable bool   `json:"preferable"`
}

// Catalog неизменяемый каталог меток.
type Catalog struct {
	all        []Label
	byID       map[int]Label
	preferable map[int]struct{}
}

// Load читает каталог из JSON-файла.
func Load(path string) (*Catalog, error) {
	const op = "labels.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var all []Label
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewCatalog(all), nil
}

// NewCatalog строит каталог из готового списка меток.
func NewCatalog(all []Label) *Catalog {
	c := &Catalog{
		all:        all,
		byID:       make(map[int]Label, len(all)),
		preferable: make(map[int]struct{}),
	}
	for _, l := range all {
		c.byID[l.ID] = l
		if l.Preferable {
			c.preferable[l.ID] = struct{}{}
		}
	}
	return c
}

// All возвращает все метки каталога в исходном порядке.
func (c *Catalog) All() []Label {
	return c.all
}

// Name возвращает имя метки по её id.
func (c *Catalog) Name(id int) (string, bool) {
	l, ok := c.byID[id]
	return l.Name, ok
}

// IsPreferable сообщает, разрешена ли метка id для подписки.
func (c *Catalog) IsPreferable(id int) bool {
	_, ok := c.preferable[id]
	return ok
}

// AllPreferable сообщает, все ли метки ids разрешены для подписки.
func (c *Catalog) AllPreferable(ids []int) bool {
	for _, id := range ids {
		if !c.IsPreferable(id) {
			return false
		}
	}
	return true
}
