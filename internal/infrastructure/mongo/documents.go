package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FormDocument は MongoDB 上でのフォーム定義スキーマを Go 構造体として表現したもの。
type FormDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Fields    []FieldDocument    `bson:"fields"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// FieldDocument はフォーム内の設問 1 件分を格納する埋め込みドキュメント。
// AllowedValues と DependsOn の値は BSON の string / bool としてそのまま保存する。
type FieldDocument struct {
	ID            primitive.ObjectID   `bson:"id"`
	Name          string               `bson:"name"`
	Type          string               `bson:"type"`
	Required      bool                 `bson:"required"`
	AllowedValues []any                `bson:"allowedValues,omitempty"`
	DependsOn     []DependencyDocument `bson:"dependsOn,omitempty"`
}

// DependencyDocument は表示条件 1 件分。宣言順を保つため map ではなく配列で保存する。
type DependencyDocument struct {
	Field string `bson:"field"`
	Value any    `bson:"value"`
}

// ResponseDocument はフォームへの回答 1 件分のスキーマ。
type ResponseDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	FormID      primitive.ObjectID `bson:"formId"`
	Answers     map[string]any     `bson:"answers"`
	SubmittedAt time.Time          `bson:"submittedAt"`
}

// FailedNotificationDocument は送信に失敗した通知を後から再送できるよう記録する。
type FailedNotificationDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Target      string             `bson:"target"`
	FormID      string             `bson:"formId"`
	ResponseID  string             `bson:"responseId"`
	Message     string             `bson:"message"`
	Error       string             `bson:"error"`
	Attempts    int                `bson:"attempts"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	LastTriedAt time.Time          `bson:"lastTriedAt"`
}
