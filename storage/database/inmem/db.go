package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-lms/core/catalogue"
)

type (
	DB struct {
		catalogue *catalogueTables
	}

	catalogueTables struct {
		mutex      sync.RWMutex
		catalogues map[string]*catalogue.Catalogue
		courses    map[string]*catalogue.Course
		semesters  map[string]*catalogue.Semester
	}
)

func Open() (*DB, error) {
	db := &DB{
		catalogue: &catalogueTables{
			catalogues: make(map[string]*catalogue.Catalogue),
			courses:    make(map[string]*catalogue.Course),
			semesters:  make(map[string]*catalogue.Semester),
		},
	}
	return db, nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.catalogue.mutex.Lock()
	defer db.catalogue.mutex.Unlock()

	db.catalogue.catalogues = make(map[string]*catalogue.Catalogue)
	db.catalogue.courses = make(map[string]*catalogue.Course)
	db.catalogue.semesters = make(map[string]*catalogue.Semester)
}
