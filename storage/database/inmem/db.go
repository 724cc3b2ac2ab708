package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/course"
)

type (
	DB struct {
		course  *courseTable
		session *sessionTable
	}

	courseTable struct {
		table map[string]*course.Course
		mutex sync.RWMutex
	}

	sessionTable struct {
		table map[string]*course.Session
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		course:  &courseTable{table: make(map[string]*course.Course)},
		session: &sessionTable{table: make(map[string]*course.Session)},
	}
}

// Reset drops every row.
func (db *DB) Reset() {
	db.course.mutex.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.mutex.Unlock()

	db.session.mutex.Lock()
	db.session.table = make(map[string]*course.Session)
	db.session.mutex.Unlock()
}
