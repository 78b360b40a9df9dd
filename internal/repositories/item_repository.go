package repositories

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ItemRepository defines the interface for item data operations
type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id string) (*models.Item, error)
	GetItemsByIDs(ctx context.Context, ids []string) ([]models.Item, error)
	ListItems(ctx context.Context, location string) ([]models.Item, error)
	ListItemsByUser(ctx context.Context, userID uint) ([]models.Item, error)
	SearchItems(ctx context.Context, query string, limit int64) ([]models.Item, error)
	ListLocations(ctx context.Context) ([]string, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	IncrementViews(ctx context.Context, id string) (*models.Item, error)
	AdjustLikes(ctx context.Context, id string, delta int) (*models.Item, error)
	AdjustComments(ctx context.Context, id string, delta int) (*models.Item, error)
}

// MongoItemRepository implements ItemRepository for MongoDB
type MongoItemRepository struct {
	collection *mongo.Collection
}

// NewMongoItemRepository creates a new MongoItemRepository
func NewMongoItemRepository(db *mongo.Database) *MongoItemRepository {
	return &MongoItemRepository{collection: db.Collection(models.ItemsCollection)}
}

// EnsureIndexes creates the indexes backing the list and search queries
func (r *MongoItemRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "location", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func parseItemID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// An unparsable id names no item
		return primitive.NilObjectID, ErrNotFound
	}
	return objID, nil
}

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *MongoItemRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Item, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []models.Item{}
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItem creates a new item with zeroed counters
func (r *MongoItemRepository) CreateItem(ctx context.Context, item *models.Item) error {
	now := time.Now()
	item.ID = primitive.NewObjectID()
	item.Views, item.Likes, item.Comments = 0, 0, 0
	item.CreatedAt = now
	item.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, item)
	return err
}

// GetItemByID retrieves an item by its hex ID
func (r *MongoItemRepository) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	objID, err := parseItemID(id)
	if err != nil {
		return nil, err
	}
	var item models.Item
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&item); err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// GetItemsByIDs returns the items that exist among ids, in no particular order
func (r *MongoItemRepository) GetItemsByIDs(ctx context.Context, ids []string) ([]models.Item, error) {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			objIDs = append(objIDs, objID)
		}
	}
	if len(objIDs) == 0 {
		return []models.Item{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": objIDs}}, options.Find())
}

// ListItems returns items newest first, limited to one location when given
func (r *MongoItemRepository) ListItems(ctx context.Context, location string) ([]models.Item, error) {
	filter := bson.M{}
	if location != "" {
		filter["location"] = location
	}
	return r.find(ctx, filter, options.Find().SetSort(newestFirst))
}

// ListItemsByUser returns the items a user sells, newest first
func (r *MongoItemRepository) ListItemsByUser(ctx context.Context, userID uint) ([]models.Item, error) {
	return r.find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
}

// SearchItems matches titles containing query, ignoring case
func (r *MongoItemRepository) SearchItems(ctx context.Context, query string, limit int64) ([]models.Item, error) {
	filter := bson.M{"title": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}
	return r.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(limit))
}

// ListLocations returns every distinct non-empty location, sorted
func (r *MongoItemRepository) ListLocations(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "location", bson.M{"location": bson.M{"$ne": ""}})
	if err != nil {
		return nil, err
	}
	locations := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			locations = append(locations, s)
		}
	}
	sort.Strings(locations)
	return locations, nil
}

// UpdateItem overwrites the editable fields of an item
func (r *MongoItemRepository) UpdateItem(ctx context.Context, item *models.Item) error {
	item.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"title":       item.Title,
			"price":       item.Price,
			"description": item.Description,
			"location":    item.Location,
			"image_url":   item.ImageURL,
			"updated_at":  item.UpdatedAt,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": item.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews adds one view and returns the updated item
func (r *MongoItemRepository) IncrementViews(ctx context.Context, id string) (*models.Item, error) {
	return r.inc(ctx, id, "views", 1)
}

// AdjustLikes applies delta to the likes counter and returns the updated item
func (r *MongoItemRepository) AdjustLikes(ctx context.Context, id string, delta int) (*models.Item, error) {
	return r.inc(ctx, id, "likes", delta)
}

// AdjustComments applies delta to the comments counter and returns the updated item
func (r *MongoItemRepository) AdjustComments(ctx context.Context, id string, delta int) (*models.Item, error) {
	return r.inc(ctx, id, "comments", delta)
}

func (r *MongoItemRepository) inc(ctx context.Context, id, field string, delta int) (*models.Item, error) {
	objID, err := parseItemID(id)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var item models.Item
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{field: delta}}, opts).Decode(&item)
	if err != nil {
		return nil, fmt.Errorf("increment %s: %w", field, translate(err))
	}
	return &item, nil
}
