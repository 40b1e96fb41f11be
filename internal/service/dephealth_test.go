// dephealth_test.go — unit-тесты сведения состояния зависимостей к readiness.
package service

import (
	"testing"
)

// TestReadiness проверяет итоговый статус по карте состояния зависимостей.
func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		health     map[string]bool
		wantStatus string
		wantMsg    string
	}{
		{
			name:       "нет данных",
			health:     nil,
			wantStatus: "degraded",
			wantMsg:    "проверка зависимостей ещё не выполнялась",
		},
		{
			name:       "сервис данных доступен",
			health:     map[string]bool{DataServiceDependency: true},
			wantStatus: "ok",
		},
		{
			name:       "сервис данных недоступен",
			health:     map[string]bool{DataServiceDependency: false},
			wantStatus: "fail",
			wantMsg:    "недоступно: data-service",
		},
		{
			name:       "несколько недоступных — по алфавиту",
			health:     map[string]bool{"b": false, "a": false, "c": true},
			wantStatus: "fail",
			wantMsg:    "недоступно: a, b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := readiness(tt.health)
			if status != tt.wantStatus {
				t.Errorf("status = %q, ожидается %q", status, tt.wantStatus)
			}
			if msg != tt.wantMsg {
				t.Errorf("message = %q, ожидается %q", msg, tt.wantMsg)
			}
		})
	}
}
