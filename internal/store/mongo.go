package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arovia-health/arovia-api/internal/models"
)

// Mongo is the UserStore backed by the "users" collection.
type Mongo struct {
	col *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{col: db.Collection("users")}
}

// EnsureIndexes creates the unique email index and the sparse unique googleId
// index. The duplicate-key error from an insert racing these indexes is what
// surfaces as ErrDuplicate; no pre-insert existence check is trusted alone.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	return err
}

func (m *Mongo) Insert(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Prescriptions == nil {
		user.Prescriptions = []models.Prescription{}
	}
	_, err := m.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *Mongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *Mongo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *Mongo) FindByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"googleId": googleID},
		bson.M{"email": email},
	}})
}

func (m *Mongo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := m.col.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Mongo) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	for k, v := range fields {
		set[k] = v
	}
	return m.findOneAndUpdate(ctx, id, bson.M{"$set": set})
}

func (m *Mongo) PushPrescription(ctx context.Context, id primitive.ObjectID, p models.Prescription) (*models.User, error) {
	return m.findOneAndUpdate(ctx, id, bson.M{
		"$push": bson.M{"prescriptions": p},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

func (m *Mongo) PullPrescription(ctx context.Context, id, prescriptionID primitive.ObjectID) (*models.User, error) {
	return m.findOneAndUpdate(ctx, id, bson.M{
		"$pull": bson.M{"prescriptions": bson.M{"_id": prescriptionID}},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

func (m *Mongo) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Mongo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *Mongo) Analytics(ctx context.Context) (*models.Analytics, error) {
	total, err := m.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	byRole, err := m.usersByRole(ctx)
	if err != nil {
		return nil, err
	}

	trend, err := m.registrationTrend(ctx)
	if err != nil {
		return nil, err
	}

	var last *models.User
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	var u models.User
	err = m.col.FindOne(ctx, bson.M{}, opts).Decode(&u)
	if err == nil {
		last = &u
	} else if err != mongo.ErrNoDocuments {
		return nil, err
	}

	return &models.Analytics{
		TotalUsers:        total,
		UsersByRole:       byRole,
		RegistrationTrend: trend,
		LastActiveUser:    last,
	}, nil
}

func (m *Mongo) usersByRole(ctx context.Context) (map[string]int64, error) {
	cursor, err := m.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Role  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	byRole := make(map[string]int64, len(rows))
	for _, row := range rows {
		byRole[row.Role] = row.Count
	}
	return byRole, nil
}

func (m *Mongo) registrationTrend(ctx context.Context) ([]models.RegistrationDay, error) {
	since := time.Now().AddDate(0, 0, -7)
	cursor, err := m.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	trend := []models.RegistrationDay{}
	if err := cursor.All(ctx, &trend); err != nil {
		return nil, err
	}
	return trend, nil
}
