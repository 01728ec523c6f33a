// Package messagequeue 定义了命令消息的线路封装格式与发布抽象。
package messagequeue

import (
	"encoding/json"
	"sort"

	"github.com/wyfcoding/allowance/xerrors"
)

// Envelope 命令消息封装。线路格式为单层 JSON 对象，
// 每个键是命令名，值是该命令的载荷对象。
type Envelope map[string]json.RawMessage

// DecodeEnvelope 解析消息体。非对象、空对象均视为非法消息。
func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrInvalidArg, "message body is not a JSON object")
	}

	if len(env) == 0 {
		return nil, xerrors.InvalidArg("message body contains no commands")
	}

	return env, nil
}

// Names 返回封装中的命令名，按字典序排序以保证多命令消息的确定性处理顺序。
func (e Envelope) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Encode 将单个命令编码为线路格式的消息体。
func Encode(name string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, xerrors.WrapInternal(err, "failed to marshal command payload")
	}

	body, err := json.Marshal(Envelope{name: raw})
	if err != nil {
		return nil, xerrors.WrapInternal(err, "failed to marshal command envelope")
	}

	return body, nil
}
