package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Audit struct {
	CreatedBy string
}

type Account struct {
	Audit
	ID       int64
	UserName string `sqlchain:"column:login"`
	Balance  float64
	Secret   string `sqlchain:"-"`
	internal int
}

func TestGetModel(t *testing.T) {
	m, err := GetModel(&Account{})
	require.NoError(t, err)
	assert.Equal(t, "Account", m.Name)

	var columns []string
	for _, f := range m.Fields {
		columns = append(columns, f.Column)
	}
	assert.Equal(t, []string{"created_by", "id", "login", "balance"}, columns)

	again, err := GetModel(reflect.TypeOf(Account{}))
	require.NoError(t, err)
	assert.Same(t, m, again)
}

func TestGetModelRejectsNonStruct(t *testing.T) {
	_, err := GetModel(nil)
	assert.Error(t, err)
	_, err = GetModel(42)
	assert.Error(t, err)
}

func TestFieldByProperty(t *testing.T) {
	m, err := GetModel(Account{})
	require.NoError(t, err)

	for _, name := range []string{"UserName", "username", "login"} {
		f, ok := m.FieldByProperty(name)
		require.True(t, ok, name)
		assert.Equal(t, "UserName", f.Name)
	}

	f, ok := m.FieldByProperty("createdBy")
	require.True(t, ok)
	v := reflect.ValueOf(Account{Audit: Audit{CreatedBy: "ops"}})
	assert.Equal(t, "ops", f.Value(v).Interface())

	_, ok = m.FieldByProperty("secret")
	assert.False(t, ok)
	_, ok = m.FieldByProperty("internal")
	assert.False(t, ok)
}

type Invoice struct {
	*Audit
	Number string
}

func TestEmbeddedPointer(t *testing.T) {
	m, err := GetModel(&Invoice{})
	require.NoError(t, err)

	f, ok := m.FieldMap["created_by"]
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, f.Index)

	assert.Equal(t, "ops", f.Value(reflect.ValueOf(Invoice{Audit: &Audit{CreatedBy: "ops"}})).Interface())
	assert.False(t, f.Value(reflect.ValueOf(Invoice{})).IsValid())
}

func TestParseTag(t *testing.T) {
	assert.Equal(t, &Tag{Column: "x"}, ParseTag("column:x"))
	assert.Equal(t, &Tag{Ignore: true}, ParseTag("-"))
	assert.Equal(t, &Tag{Column: "y", Ignore: true}, ParseTag("column:y; ignore"))
	assert.Equal(t, &Tag{}, ParseTag(""))
}

func TestCamelToSnake(t *testing.T) {
	assert.Equal(t, "id", camelToSnake("ID"))
	assert.Equal(t, "user_id", camelToSnake("UserID"))
	assert.Equal(t, "http_status", camelToSnake("HTTPStatus"))
}
