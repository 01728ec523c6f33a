// Package readmodel 提供命令侧事件投影的读模型存储。
// 每个限界上下文使用独立集合，文档按聚合 ID 整篇覆写。
package readmodel

import "context"

// Store 读模型存储抽象。
type Store interface {
	// Upsert 按 ID 覆写文档，不存在时插入。
	Upsert(ctx context.Context, collection, id string, doc any) error
	// Delete 删除文档。文档不存在不视为错误。
	Delete(ctx context.Context, collection, id string) error
}
