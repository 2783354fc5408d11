// Package mongodb implements storage.Store on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adanyl0v/taskboard/internal/models"
	"github.com/adanyl0v/taskboard/internal/storage"
)

const (
	tasksCollection = "tasks"
	usersCollection = "users"
)

type Store struct {
	logger zerolog.Logger
	client *mongo.Client
	tasks  *mongo.Collection
	users  *mongo.Collection

	// Multi-document transactions need a replica set or a sharded
	// cluster. Without them Reposition falls back to one ordered bulk write.
	transactions bool
}

var _ storage.Store = (*Store)(nil)

func New(logger zerolog.Logger, client *mongo.Client, database string, transactions bool) *Store {
	db := client.Database(database)
	return &Store{
		logger:       logger,
		client:       client,
		tasks:        db.Collection(tasksCollection),
		users:        db.Collection(usersCollection),
		transactions: transactions,
	}
}

// EnsureIndexes creates the ordering index on tasks and the unique
// email index on users.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "position", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks index: %w", err)
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	s.logger.Debug().Msg("ensured mongo indexes")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type taskDocument struct {
	ID          string     `bson:"_id"`
	UserID      string     `bson:"userId"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	DueDate     *time.Time `bson:"dueDate,omitempty"`
	Priority    string     `bson:"priority"`
	Status      string     `bson:"status"`
	Category    string     `bson:"category"`
	Position    int        `bson:"position"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

func newTaskDocument(t *models.Task) taskDocument {
	return taskDocument{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Category:    t.Category,
		Position:    t.Position,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDocument) toModel() models.Task {
	return models.Task{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		DueDate:     d.DueDate,
		Priority:    models.Priority(d.Priority),
		Status:      models.Status(d.Status),
		Category:    d.Category,
		Position:    d.Position,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (s *Store) CountTasks(ctx context.Context, ownerID string) (int, error) {
	count, err := s.tasks.CountDocuments(ctx, bson.M{"userId": ownerID})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to count tasks")
		return 0, err
	}
	return int(count), nil
}

func (s *Store) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	query := bson.M{"userId": ownerID}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Priority != "" {
		query["priority"] = string(filter.Priority)
	}
	if filter.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "position", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := s.tasks.Find(ctx, query, opts)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to find tasks")
		return nil, err
	}

	var docs []taskDocument
	if err = cursor.All(ctx, &docs); err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to decode tasks")
		return nil, err
	}

	tasks := make([]models.Task, len(docs))
	for i, doc := range docs {
		tasks[i] = doc.toModel()
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Str("user_id", ownerID).
		Msg("found tasks")
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	var doc taskDocument
	err := s.tasks.FindOne(ctx, bson.M{"_id": taskID, "userId": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrTaskNotFound
		}
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to find task")
		return nil, err
	}
	task := doc.toModel()
	return &task, nil
}

func (s *Store) InsertTask(ctx context.Context, task *models.Task) error {
	_, err := s.tasks.InsertOne(ctx, newTaskDocument(task))
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return err
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Int("position", task.Position).
		Msg("inserted task")
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (*models.Task, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.DueDate != nil {
		set["dueDate"] = *patch.DueDate
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}

	update := bson.M{"$set": set}
	if patch.DueDate == nil && patch.ClearDueDate {
		update["$unset"] = bson.M{"dueDate": ""}
	}

	var doc taskDocument
	err := s.tasks.FindOneAndUpdate(
		ctx,
		bson.M{"_id": taskID, "userId": ownerID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrTaskNotFound
		}
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to update task")
		return nil, err
	}
	task := doc.toModel()
	return &task, nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	result, err := s.tasks.DeleteOne(ctx, bson.M{"_id": taskID, "userId": ownerID})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}
	if result.DeletedCount == 0 {
		return storage.ErrTaskNotFound
	}
	return nil
}

func (s *Store) Reposition(ctx context.Context, ownerID string, entries []models.ReorderEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, len(entries))
	for i, e := range entries {
		writes[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": e.ID, "userId": ownerID}).
			SetUpdate(bson.M{"$set": bson.M{"position": e.Position, "updatedAt": now}})
	}
	bulkOpts := options.BulkWrite().SetOrdered(true)

	if !s.transactions {
		result, err := s.tasks.BulkWrite(ctx, writes, bulkOpts)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("user_id", ownerID).
				Msg("failed to reposition tasks")
			return 0, err
		}
		return int(result.MatchedCount), nil
	}

	session, err := s.client.StartSession()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to start session")
		return 0, err
	}
	defer session.EndSession(ctx)

	matched, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := s.tasks.BulkWrite(sc, writes, bulkOpts)
		if err != nil {
			return nil, err
		}
		return result.MatchedCount, nil
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to reposition tasks")
		return 0, err
	}
	s.logger.Debug().
		Str("user_id", ownerID).
		Int64("matched", matched.(int64)).
		Msg("repositioned tasks")
	return int(matched.(int64)), nil
}

type userDocument struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	_, err := s.users.InsertOne(ctx, userDocument{
		ID:        user.ID,
		Email:     user.Email,
		Password:  user.Password,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicateEmail
		}
		s.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrUserNotFound
		}
		s.logger.Error().
			Err(err).
			Msg("failed to find user")
		return nil, err
	}
	return &models.User{
		ID:        doc.ID,
		Email:     doc.Email,
		Password:  doc.Password,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
