// Package models はTodoを定義します。
package models

// Todo は todos テーブルの1行を表します。
// ID はサーバー側で採番され、一度割り当てられたら変更されません。
type Todo struct {
	ID   int64  `json:"id"`
	Task string `json:"task"`
}

// CreateTodoRequest は POST /todos のリクエストボディです。
// task が空かどうかは services.TodoService が判定します。
type CreateTodoRequest struct {
	Task string `json:"task"`
}
