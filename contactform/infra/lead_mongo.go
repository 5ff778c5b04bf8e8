package infra

import (
	"context"
	"fmt"
	"time"

	"contact-gateway/contactform/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LeadDocument é o formato do lead no MongoDB.
type LeadDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	Phone        string    `bson:"phone"`
	County       string    `bson:"county,omitempty"`
	City         string    `bson:"city,omitempty"`
	PropertyType string    `bson:"propertyType,omitempty"`
	Message      string    `bson:"message"`
	ClientKey    string    `bson:"clientKey,omitempty"`
	UserAgent    string    `bson:"userAgent,omitempty"`
	Referer      string    `bson:"referer,omitempty"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func NewLeadDocument(lead domain.Lead) LeadDocument {
	p := lead.Payload
	return LeadDocument{
		ID:           lead.ID.String(),
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		County:       p.County,
		City:         p.City,
		PropertyType: p.PropertyType,
		Message:      p.Message,
		ClientKey:    string(lead.ClientKey),
		UserAgent:    lead.UserAgent,
		Referer:      lead.Referer,
		Status:       "new",
		CreatedAt:    lead.ReceivedAt.UTC(),
	}
}

// MongoLeadRepository grava leads numa coleção do MongoDB.
type MongoLeadRepository struct {
	leads *mongo.Collection
}

func NewMongoLeadRepository(db *mongo.Database, collection string) *MongoLeadRepository {
	return &MongoLeadRepository{leads: db.Collection(collection)}
}

func (r *MongoLeadRepository) Save(ctx context.Context, lead domain.Lead) error {
	if _, err := r.leads.InsertOne(ctx, NewLeadDocument(lead)); err != nil {
		return fmt.Errorf("insert lead %s: %w", lead.ID, err)
	}
	return nil
}

// EnsureIndexes cria os índices usados pelo painel (por data e por email).
func (r *MongoLeadRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.leads.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_1")},
	})
	if err != nil {
		return fmt.Errorf("create lead indexes: %w", err)
	}
	return nil
}
