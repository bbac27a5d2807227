package query

import "fmt"

// Condition represents a WHERE clause condition.
// SQL returns the fragment and its parameters; paramIndex is the first free
// parameter number and the fragment must use one name per returned param.
type Condition interface {
	SQL(paramIndex int) (string, map[string]interface{})
}

type eqCondition struct {
	field string
	value interface{}
}

// Eq creates an equality condition: Eq("status", "pending") renders
// "status = @p0".
func Eq(field string, value interface{}) Condition {
	return &eqCondition{field: field, value: value}
}

func (c *eqCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	name := fmt.Sprintf("p%d", paramIndex)
	return fmt.Sprintf("%s = @%s", c.field, name), map[string]interface{}{name: c.value}
}

type inCondition struct {
	field  string
	values []string
}

// In creates a membership condition over a string array parameter:
// In("entity_id", ids) renders "entity_id IN UNNEST(@p0)".
func In(field string, values []string) Condition {
	return &inCondition{field: field, values: values}
}

func (c *inCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	name := fmt.Sprintf("p%d", paramIndex)
	return fmt.Sprintf("%s IN UNNEST(@%s)", c.field, name), map[string]interface{}{name: c.values}
}

type isNullCondition struct {
	field string
}

// IsNull creates a NULL check: IsNull("processed_at") renders
// "processed_at IS NULL".
func IsNull(field string) Condition {
	return &isNullCondition{field: field}
}

func (c *isNullCondition) SQL(int) (string, map[string]interface{}) {
	return fmt.Sprintf("%s IS NULL", c.field), map[string]interface{}{}
}

type ltCondition struct {
	field string
	value interface{}
}

// Lt creates a less-than condition: Lt("processed_at", t) renders
// "processed_at < @p0".
func Lt(field string, value interface{}) Condition {
	return &ltCondition{field: field, value: value}
}

func (c *ltCondition) SQL(paramIndex int) (string, map[string]interface{}) {
	name := fmt.Sprintf("p%d", paramIndex)
	return fmt.Sprintf("%s < @%s", c.field, name), map[string]interface{}{name: c.value}
}
