package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// QuestionKind 题型
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single_choice"
	KindTrueFalse    QuestionKind = "true_false"
	KindOpenText     QuestionKind = "open_text"
)

func (k QuestionKind) Valid() bool {
	switch k {
	case KindSingleChoice, KindTrueFalse, KindOpenText:
		return true
	}
	return false
}

// ErrAnomaly marks a malformed key or an unexpected value shape met while comparing.
var ErrAnomaly = errors.New("grading anomaly")

type valueKind int

const (
	noAnswer valueKind = iota
	scalarValue
	structuredValue
)

// AnswerValue is either no answer, a trimmed scalar string, or a decoded
// JSON-like literal (bool, float64, []interface{}, map[string]interface{}).
type AnswerValue struct {
	kind       valueKind
	scalar     string
	structured interface{}
}

func NoAnswer() AnswerValue {
	return AnswerValue{kind: noAnswer}
}

func Scalar(s string) AnswerValue {
	return AnswerValue{kind: scalarValue, scalar: strings.TrimSpace(s)}
}

// IsEmpty reports whether the value carries nothing gradable.
func (v AnswerValue) IsEmpty() bool {
	switch v.kind {
	case noAnswer:
		return true
	case scalarValue:
		return v.scalar == ""
	}
	return v.structured == nil
}

// Text renders the value the way open-text comparison sees it.
func (v AnswerValue) Text() string {
	switch v.kind {
	case noAnswer:
		return ""
	case scalarValue:
		return v.scalar
	}
	switch x := v.structured.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v.structured)
	if err != nil {
		return ""
	}
	return string(b)
}

// Equal is structural equality; lists compare element-wise and no type coercion happens.
func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case noAnswer:
		return true
	case scalarValue:
		return v.scalar == o.scalar
	}
	return reflect.DeepEqual(v.structured, o.structured)
}

// Normalize is the single entry point used for both the learner answer and the key.
// Strings are trimmed and then decoded as JSON when possible; a JSON string collapses
// back to a scalar. Any other Go value is canonicalized through a JSON round trip.
func Normalize(raw interface{}) (AnswerValue, error) {
	switch x := raw.(type) {
	case nil:
		return NoAnswer(), nil
	case AnswerValue:
		return x, nil
	case string:
		return normalizeString(x), nil
	case json.RawMessage:
		return normalizeString(string(x)), nil
	case []byte:
		return normalizeString(string(x)), nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return AnswerValue{}, fmt.Errorf("%w: encode %T: %v", ErrAnomaly, raw, err)
	}
	var decoded interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		return AnswerValue{}, fmt.Errorf("%w: decode %T: %v", ErrAnomaly, raw, err)
	}
	return fromDecoded(decoded), nil
}

func normalizeString(s string) AnswerValue {
	t := strings.TrimSpace(s)
	if t == "" {
		return Scalar("")
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(t), &decoded); err != nil {
		return Scalar(t)
	}
	return fromDecoded(decoded)
}

func fromDecoded(v interface{}) AnswerValue {
	switch x := v.(type) {
	case nil:
		return NoAnswer()
	case string:
		return Scalar(x)
	}
	return AnswerValue{kind: structuredValue, structured: trimNested(v)}
}

func trimNested(v interface{}) interface{} {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = trimNested(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[strings.TrimSpace(k)] = trimNested(e)
		}
		return out
	}
	return v
}

// Compare returns the correctness verdict. Anomalies count as incorrect.
func Compare(raw interface{}, key string, kind QuestionKind) bool {
	ok, _ := Evaluate(raw, key, kind)
	return ok
}

// Evaluate is Compare plus the anomaly that forced an incorrect verdict, if any.
func Evaluate(raw interface{}, key string, kind QuestionKind) (correct bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			correct = false
			err = fmt.Errorf("%w: %v", ErrAnomaly, r)
		}
	}()

	if kind == KindOpenText {
		return evaluateOpenText(raw, key)
	}

	expected := normalizeString(key)
	given, err := Normalize(raw)
	if err != nil {
		return false, err
	}

	if given.kind == noAnswer {
		return expected.IsEmpty(), nil
	}

	switch kind {
	case KindSingleChoice, KindTrueFalse:
		return given.Equal(expected), nil
	}
	return false, fmt.Errorf("%w: unknown question kind %q", ErrAnomaly, kind)
}

// evaluateOpenText 精确比较：仅去除首尾空白并忽略大小写，不做数值或 JSON 归一化
func evaluateOpenText(raw interface{}, key string) (bool, error) {
	expected := openTextKey(key)
	given, present, err := openTextAnswer(raw)
	if err != nil {
		return false, err
	}
	if !present {
		return normalizeString(key).IsEmpty(), nil
	}
	return strings.EqualFold(given, expected), nil
}

// openTextKey 只拆开 JSON 字符串字面量形式的答案键，其余按原文处理
func openTextKey(key string) string {
	t := strings.TrimSpace(key)
	if len(t) >= 2 && t[0] == '"' && t[len(t)-1] == '"' {
		var s string
		if err := json.Unmarshal([]byte(t), &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return t
}

func openTextAnswer(raw interface{}) (string, bool, error) {
	switch x := raw.(type) {
	case nil:
		return "", false, nil
	case AnswerValue:
		if x.kind == noAnswer {
			return "", false, nil
		}
		return x.Text(), true, nil
	case string:
		return strings.TrimSpace(x), true, nil
	case []byte:
		return strings.TrimSpace(string(x)), true, nil
	case json.RawMessage:
		return openTextKey(string(x)), true, nil
	case bool:
		return strconv.FormatBool(x), true, nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: encode %T: %v", ErrAnomaly, raw, err)
	}
	return strings.TrimSpace(string(b)), true, nil
}
