package gotel

import (
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// Attributes 将 glog 风格的键值对转换为 OpenTelemetry 属性。
// 非字符串键和缺少值的键会被跳过。
func Attributes(kv ...interface{}) []attribute.KeyValue {
	if len(kv) < 2 {
		return nil
	}

	result := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		result = append(result, convertAttribute(key, kv[i+1]))
	}
	return result
}

// convertAttribute 转换单个属性
func convertAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint32:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		// 对于不支持的类型，转换为字符串
		return attribute.String(key, toString(v))
	}
}

// toString 将任意值转换为字符串
func toString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case error:
		return v.Error()
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
