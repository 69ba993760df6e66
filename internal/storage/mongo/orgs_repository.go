package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/orglinks/orglinks/internal/infrastructure/db"
	"github.com/orglinks/orglinks/internal/processing/orgs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrgsRepository struct {
	coll    *mongo.Collection
	members *mongo.Collection
}

type orgDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	ShortName   string    `bson:"shortName"`
	Description string    `bson:"description,omitempty"`
	OwnerID     string    `bson:"ownerId"`
	CreatedAt   time.Time `bson:"createdAt"`
	Active      bool      `bson:"active"`
}

type membershipDoc struct {
	OrgID    string    `bson:"orgId"`
	UserID   string    `bson:"userId"`
	Role     string    `bson:"role"`
	JoinedAt time.Time `bson:"joinedAt"`
	Active   bool      `bson:"active"`
}

func NewOrgsRepository(m *db.Mongo) (*OrgsRepository, error) {
	repo := &OrgsRepository{
		coll:    m.Collection("organizations"),
		members: m.Collection("organization_members"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_name"),
		},
		{
			Keys:    bson.D{{Key: "shortName", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_shortName"),
		},
	})
	if err != nil {
		return nil, err
	}

	_, err = repo.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "orgId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_org_user"),
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *OrgsRepository) Insert(ctx context.Context, org *orgs.Organization) error {
	_, err := r.coll.InsertOne(ctx, toOrgDoc(org))
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		// Short name collisions are the common case; a precise split would
		// need the index name out of the write error.
		if taken, lookupErr := r.shortNameTaken(ctx, org.ShortName); lookupErr == nil && taken {
			return orgs.ErrShortNameTaken
		}
		return orgs.ErrNameTaken
	}

	return err
}

func (r *OrgsRepository) shortNameTaken(ctx context.Context, shortName string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"shortName": shortName},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

func (r *OrgsRepository) FindByID(ctx context.Context, id string) (*orgs.Organization, error) {
	var doc orgDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == nil {
		return mapOrgDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, orgs.ErrNotFound
	}

	return nil, err
}

func (r *OrgsRepository) FindByShortName(ctx context.Context, shortName string) (*orgs.Organization, error) {
	var doc orgDoc
	err := r.coll.FindOne(ctx, bson.M{"shortName": shortName}).Decode(&doc)
	if err == nil {
		return mapOrgDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, orgs.ErrNotFound
	}

	return nil, err
}

func (r *OrgsRepository) Update(ctx context.Context, org *orgs.Organization) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": org.ID}, toOrgDoc(org))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return orgs.ErrNameTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return orgs.ErrNotFound
	}
	return nil
}

func (r *OrgsRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return orgs.ErrNotFound
	}
	return nil
}

func (r *OrgsRepository) ListForUser(ctx context.Context, userID string) ([]*orgs.Organization, error) {
	memberCursor, err := r.members.Find(ctx, bson.M{"userId": userID, "active": true})
	if err != nil {
		return nil, err
	}
	defer memberCursor.Close(ctx)

	orgIDs := bson.A{}
	for memberCursor.Next(ctx) {
		var doc membershipDoc
		if err := memberCursor.Decode(&doc); err != nil {
			return nil, err
		}
		orgIDs = append(orgIDs, doc.OrgID)
	}
	if err := memberCursor.Err(); err != nil {
		return nil, err
	}

	cursor, err := r.coll.Find(ctx,
		bson.M{
			"active": true,
			"$or": bson.A{
				bson.M{"ownerId": userID},
				bson.M{"_id": bson.M{"$in": orgIDs}},
			},
		},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*orgs.Organization
	for cursor.Next(ctx) {
		var doc orgDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, mapOrgDoc(doc))
	}
	return out, cursor.Err()
}

func (r *OrgsRepository) Add(ctx context.Context, m *orgs.Membership) error {
	_, err := r.members.UpdateOne(ctx,
		bson.M{"orgId": m.OrgID, "userId": m.UserID},
		bson.M{"$set": membershipDoc{
			OrgID:    m.OrgID,
			UserID:   m.UserID,
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.UTC(),
			Active:   m.Active,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *OrgsRepository) IsActiveMember(ctx context.Context, orgID, userID string) (bool, error) {
	err := r.members.FindOne(ctx,
		bson.M{"orgId": orgID, "userId": userID, "active": true},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

func toOrgDoc(org *orgs.Organization) orgDoc {
	return orgDoc{
		ID:          org.ID,
		Name:        org.Name,
		ShortName:   org.ShortName,
		Description: org.Description,
		OwnerID:     org.OwnerID,
		CreatedAt:   org.CreatedAt.UTC(),
		Active:      org.Active,
	}
}

func mapOrgDoc(doc orgDoc) *orgs.Organization {
	return &orgs.Organization{
		ID:          doc.ID,
		Name:        doc.Name,
		ShortName:   doc.ShortName,
		Description: doc.Description,
		OwnerID:     doc.OwnerID,
		CreatedAt:   doc.CreatedAt,
		Active:      doc.Active,
	}
}
