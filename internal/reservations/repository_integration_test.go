//go:build integration

package reservations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/pkg/database/databasetest"
)

func seedFood(t *testing.T, pool *pgxpool.Pool, total, limit int) (eventID, foodID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	organizer := databasetest.User(t, pool, "student", "organizer")
	now := time.Now()
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO events (organizer_id, name, location, category, start_time, end_time)
		VALUES ($1, 'Pizza Night', 'east-campus', 'Dinner', $2, $3) RETURNING id`,
		organizer, now.Add(-time.Hour), now.Add(time.Hour)).Scan(&eventID))
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO event_foods (event_id, name, total_portions, per_student_limit)
		VALUES ($1, 'Pizza', $2, $3) RETURNING id`, eventID, total, limit).Scan(&foodID))
	return eventID, foodID
}

// 25 students race for 10 portions: exactly 10 succeed.
func TestRepositoryConcurrentReserve(t *testing.T) {
	pool := databasetest.Pool(t)
	_, foodID := seedFood(t, pool, 10, 1)
	svc := NewService(NewRepository(pool), nil, nil)

	students := make([]uuid.UUID, 25)
	for i := range students {
		students[i] = databasetest.User(t, pool)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
		full     int
	)
	for _, id := range students {
		wg.Add(1)
		go func(studentID uuid.UUID) {
			defer wg.Done()
			err := svc.Reserve(context.Background(), studentID, foodID, 1)
			mu.Lock()
			defer mu.Unlock()
			var capErr *CapacityError
			switch {
			case err == nil:
				reserved++
			case errors.As(err, &capErr):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 10, reserved)
	assert.Equal(t, 15, full)

	totals, err := NewRepository(pool).FoodTotals(context.Background(), foodID)
	require.NoError(t, err)
	assert.Equal(t, 10, totals.TotalReserved)
	assert.Equal(t, 0, totals.Remaining())
}

func TestRepositoryRepeatReserveMerges(t *testing.T) {
	pool := databasetest.Pool(t)
	_, foodID := seedFood(t, pool, 20, 4)
	repo := NewRepository(pool)
	svc := NewService(repo, nil, nil)
	student := databasetest.User(t, pool)
	ctx := context.Background()

	require.NoError(t, svc.Reserve(ctx, student, foodID, 1))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Reserve(context.Background(), student, foodID, 1))
		}()
	}
	wg.Wait()

	list, err := repo.ListForStudent(ctx, student)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Quantity)

	var limErr *LimitError
	require.ErrorAs(t, svc.Reserve(ctx, student, foodID, 2), &limErr)
	assert.Equal(t, 4, limErr.Limit)

	// a settled reservation leaves room for a fresh row
	require.NoError(t, svc.UpdateStatus(ctx, student, list[0].ID, models.ReservationCancelled))
	require.NoError(t, svc.Reserve(ctx, student, foodID, 2))
	list, err = repo.ListForStudent(ctx, student)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRepositoryReserveEndedEvent(t *testing.T) {
	pool := databasetest.Pool(t)
	eventID, foodID := seedFood(t, pool, 5, 1)
	_, err := pool.Exec(context.Background(), `UPDATE events SET end_time = NOW() - INTERVAL '1 minute' WHERE id = $1`, eventID)
	require.NoError(t, err)

	svc := NewService(NewRepository(pool), nil, nil)
	err = svc.Reserve(context.Background(), databasetest.User(t, pool), foodID, 1)
	assert.ErrorIs(t, err, ErrEventEnded)

	_, err = NewRepository(pool).FoodTotals(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrFoodNotFound)
}
