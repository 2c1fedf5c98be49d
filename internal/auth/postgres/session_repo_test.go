// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypost/waypost/internal/auth"
)

func testSession(t *testing.T) *auth.Session {
	t.Helper()
	session, err := auth.NewSession(ulid.Make(), "signed.token.value", time.Now().Add(time.Hour))
	require.NoError(t, err)
	return session
}

func sessionColumns() []string {
	return []string{"id", "user_id", "token", "expires_at", "created_at"}
}

func TestSessionRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, session *auth.Session)
		wantErr   error
		errMsg    string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface, session *auth.Session) {
				mock.ExpectExec(`INSERT INTO sessions`).
					WithArgs(session.ID.String(), session.UserID.String(), session.Token,
						session.ExpiresAt, session.CreatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "token collision surfaces the unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface, session *auth.Session) {
				mock.ExpectExec(`INSERT INTO sessions`).
					WithArgs(session.ID.String(), session.UserID.String(), session.Token,
						session.ExpiresAt, session.CreatedAt).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: auth.ErrUniqueViolation,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface, session *auth.Session) {
				mock.ExpectExec(`INSERT INTO sessions`).
					WithArgs(session.ID.String(), session.UserID.String(), session.Token,
						session.ExpiresAt, session.CreatedAt).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			session := testSession(t)
			tt.setupMock(mock, session)

			repo := NewSessionRepository(mock)
			err = repo.Create(context.Background(), session)

			switch {
			case tt.wantErr != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestSessionRepository_GetByToken(t *testing.T) {
	id := ulid.Make()
	userID := ulid.Make()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		rows := pgxmock.NewRows(sessionColumns()).
			AddRow(id.String(), userID.String(), "signed.token.value", now.Add(time.Hour), now)
		mock.ExpectQuery(`SELECT id, user_id, token, expires_at, created_at\s+FROM sessions\s+WHERE token = \$1`).
			WithArgs("signed.token.value").
			WillReturnRows(rows)

		repo := NewSessionRepository(mock)
		got, err := repo.GetByToken(context.Background(), "signed.token.value")

		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, "signed.token.value", got.Token)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, user_id, token, expires_at, created_at\s+FROM sessions\s+WHERE token = \$1`).
			WithArgs("never-issued").
			WillReturnRows(pgxmock.NewRows(sessionColumns()))

		repo := NewSessionRepository(mock)
		_, err = repo.GetByToken(context.Background(), "never-issued")

		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_Delete(t *testing.T) {
	id := ulid.Make()

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "successful delete",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
					WithArgs(id.String()).
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
			},
		},
		{
			name: "zero rows affected maps to not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
					WithArgs(id.String()).
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
			wantErr: auth.ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
					WithArgs(id.String()).
					WillReturnError(errors.New("connection lost"))
			},
			errMsg: "connection lost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewSessionRepository(mock)
			err = repo.Delete(context.Background(), id)

			switch {
			case tt.wantErr != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestSessionRepository_DeleteByToken(t *testing.T) {
	t.Run("zero rows deleted is not an error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM sessions WHERE token = \$1`).
			WithArgs("never-issued").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := NewSessionRepository(mock)
		assert.NoError(t, repo.DeleteByToken(context.Background(), "never-issued"))
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM sessions WHERE token = \$1`).
			WithArgs("signed.token.value").
			WillReturnError(errors.New("disk full"))

		repo := NewSessionRepository(mock)
		err = repo.DeleteByToken(context.Background(), "signed.token.value")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	now := time.Now()

	t.Run("returns the number of rows removed", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
			WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		repo := NewSessionRepository(mock)
		deleted, err := repo.DeleteExpired(context.Background(), now)

		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err, "failed to create mock")
		defer mock.Close()

		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
			WithArgs(now).
			WillReturnError(errors.New("timeout"))

		repo := NewSessionRepository(mock)
		_, err = repo.DeleteExpired(context.Background(), now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
	})
}
