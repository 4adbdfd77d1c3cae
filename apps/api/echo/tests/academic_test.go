package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/yedirenklicinar/akademi/core/academic"
	"github.com/yedirenklicinar/akademi/core/user"
	testutil "github.com/yedirenklicinar/akademi/tests"
)

func Test_academicApi_grades(t *testing.T) {
	resetDB(t)

	student := testutil.CreateProfile(t, profRepo, "Hero Kid", "hero@test.cd", "", user.RoleStudent, nil, true)
	teacher := testutil.CreateProfile(t, profRepo, "Teacher One", "teacher@test.cd", "", user.RoleTeacher, nil, true)

	tests := []httpTest{
		{name: "auth required", path: "/v1/grades", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "students cannot create", method: http.MethodPost, path: "/v1/grades", token: getToken(t, student),
			body:     marshalObj(t, map[string]string{"name": "Grade 7"}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errPermDenied),
		},
		{
			name: "name required", method: http.MethodPost, path: "/v1/grades", token: getToken(t, teacher),
			body:     marshalObj(t, map[string]string{"name": "   "}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"name": "this field is required"}),
		},
		{name: "empty listing", path: "/v1/grades", token: getToken(t, student), wantData: marshalList(t)},
	}
	runTable(t, tests)

	var grade academic.Grade
	t.Run("teacher creates", func(t *testing.T) {
		body := marshalObj(t, map[string]string{"name": "Grade 7"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/grades", getToken(t, teacher), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &grade); err != nil {
			t.Fatalf("decoding grade: %v", err)
		}
		if grade.ID == 0 || grade.Name != "Grade 7" {
			t.Errorf("unexpected grade: %+v", grade)
		}
	})

	t.Run("students can read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/grades", getToken(t, student))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marshalList(t, grade)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("rename", func(t *testing.T) {
		body := marshalObj(t, map[string]string{"name": "Grade 8"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/grades/"+itoa(grade.ID), getToken(t, teacher), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var renamed academic.Grade
		if err := json.Unmarshal(rec.Body.Bytes(), &renamed); err != nil {
			t.Fatalf("decoding grade: %v", err)
		}
		if renamed.Name != "Grade 8" {
			t.Errorf("name = %q; want %q", renamed.Name, "Grade 8")
		}
	})

	t.Run("rename unknown", func(t *testing.T) {
		body := marshalObj(t, map[string]string{"name": "Grade 9"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/grades/999", getToken(t, teacher), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_academicApi_hierarchy(t *testing.T) {
	resetDB(t)

	teacher := testutil.CreateProfile(t, profRepo, "Teacher One", "teacher@test.cd", "", user.RoleTeacher, nil, true)
	token := getToken(t, teacher)

	post := func(t *testing.T, path string, body []byte, out interface{}) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST %s: code = %v; body %s", path, rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s response: %v", path, err)
		}
	}

	var grade academic.Grade
	post(t, "/v1/grades", marshalObj(t, map[string]string{"name": "Grade 7"}), &grade)

	var course academic.Course
	post(t, "/v1/courses", marshalObj(t, map[string]interface{}{"grade_id": grade.ID, "name": "Maths"}), &course)

	var unit academic.Unit
	post(t, "/v1/units", marshalObj(t, map[string]interface{}{"course_id": course.ID, "name": "Numbers", "position": 1}), &unit)

	var topic academic.Topic
	post(t, "/v1/topics", marshalObj(t, map[string]interface{}{"unit_id": unit.ID, "name": "Fractions", "position": 1}), &topic)

	var outcome academic.LearningOutcome
	post(t, "/v1/outcomes", marshalObj(t, map[string]interface{}{
		"topic_id":    topic.ID,
		"code":        "M7.1.1",
		"description": "Add fractions with unlike denominators",
	}), &outcome)

	t.Run("malformed outcome code rejected", func(t *testing.T) {
		body := marshalObj(t, map[string]interface{}{
			"topic_id":    topic.ID,
			"code":        "M7 1 1!",
			"description": "Add fractions with unlike denominators",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/outcomes", token, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"code": "invalid outcome code"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("deep course load", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+itoa(course.ID)+"?deep=true", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		var loaded academic.Course
		if err := json.Unmarshal(rec.Body.Bytes(), &loaded); err != nil {
			t.Fatalf("decoding course: %v", err)
		}
		if len(loaded.Units) != 1 || len(loaded.Units[0].Topics) != 1 || len(loaded.Units[0].Topics[0].Outcomes) != 1 {
			t.Fatalf("unexpected hierarchy: %+v", loaded)
		}
		if got := loaded.Units[0].Topics[0].Outcomes[0].Code; got != "M7.1.1" {
			t.Errorf("outcome code = %q; want %q", got, "M7.1.1")
		}
	})

	t.Run("courses filtered by grade", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses?grade_id="+itoa(grade.ID), token)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marshalList(t, course)}
		checkCodeAndData(t, tt, rec)
	})
}
