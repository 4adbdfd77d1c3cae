// Package dummydb provides in-memory repositories for tests and local hacking.
package dummydb

import (
	"sync"

	"github.com/yedirenklicinar/akademi/core/academic"
	"github.com/yedirenklicinar/akademi/core/exam"
	"github.com/yedirenklicinar/akademi/core/question"
	"github.com/yedirenklicinar/akademi/core/user"
)

type (
	profileTable struct {
		sync.RWMutex
		table map[string]*user.Profile
	}

	academicTable struct {
		sync.RWMutex
		grades   map[int]*academic.Grade
		courses  map[int]*academic.Course
		units    map[int]*academic.Unit
		topics   map[int]*academic.Topic
		outcomes map[int]*academic.LearningOutcome
		pk       int
	}

	questionTable struct {
		sync.RWMutex
		table map[int]*question.Question
		pk    int
		optPK int
	}

	examTable struct {
		sync.RWMutex
		tests  map[int]*exam.Test
		subs   map[int]*exam.Submission
		testPK int
		subPK  int
	}

	DB struct {
		profile  *profileTable
		academic *academicTable
		question *questionTable
		exam     *examTable
	}
)

func NewDB() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset drops all data; handy between test cases.
// Tables are cleared in place so that repositories created before the
// reset keep seeing the same table instances.
func (db *DB) Reset() {
	if db.profile == nil {
		db.profile = new(profileTable)
		db.academic = new(academicTable)
		db.question = new(questionTable)
		db.exam = new(examTable)
	}
	db.profile.table = make(map[string]*user.Profile)
	db.academic.grades = make(map[int]*academic.Grade)
	db.academic.courses = make(map[int]*academic.Course)
	db.academic.units = make(map[int]*academic.Unit)
	db.academic.topics = make(map[int]*academic.Topic)
	db.academic.outcomes = make(map[int]*academic.LearningOutcome)
	db.academic.pk = 0
	db.question.table = make(map[int]*question.Question)
	db.question.pk = 0
	db.question.optPK = 0
	db.exam.tests = make(map[int]*exam.Test)
	db.exam.subs = make(map[int]*exam.Submission)
	db.exam.testPK = 0
	db.exam.subPK = 0
}
