// Package mongodb 文档型存储后端，基于官方 mongo-driver
package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/hatlonely/mapx/backend"
	"github.com/hatlonely/mapx/query"
)

// MongoOptions MongoDB 连接选项
type MongoOptions struct {
	URI         string        `cfg:"uri"`
	Host        string        `cfg:"host" def:"localhost"`
	Port        int           `cfg:"port" def:"27017"`
	Database    string        `cfg:"database"`
	Username    string        `cfg:"username"`
	Password    string        `cfg:"password"`
	AuthSource  string        `cfg:"authSource" def:"admin"`
	Timeout     time.Duration `cfg:"timeout" def:"30s"`
	MaxPoolSize uint64        `cfg:"maxPoolSize" def:"100"`
	MinPoolSize uint64        `cfg:"minPoolSize" def:"0"`
}

// Mongo MongoDB 后端实现
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoWithOptions(opts *MongoOptions) (*Mongo, error) {
	if opts == nil {
		return nil, errors.New("options is nil")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	uri := opts.URI
	if uri == "" {
		if opts.Username != "" && opts.Password != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d/%s?authSource=%s",
				opts.Username, opts.Password, opts.Host, opts.Port,
				opts.Database, opts.AuthSource)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d/%s", opts.Host, opts.Port, opts.Database)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(opts.MaxPoolSize)
	clientOptions.SetMinPoolSize(opts.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to connect to mongodb")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.WithMessage(err, "failed to ping mongodb")
	}

	return &Mongo{
		client:   client,
		database: client.Database(opts.Database),
	}, nil
}

// filterOf 将条件节点转换为 mongo 过滤器，无条件时返回空过滤器
func filterOf(d *query.Descriptor) (bson.M, error) {
	if d == nil || d.Cond() == nil {
		return bson.M{}, nil
	}
	filter, err := d.Cond().ToMongo()
	if err != nil {
		return nil, err
	}
	return filter, nil
}

func (m *Mongo) Query(ctx context.Context, table string, d *query.Descriptor) ([]map[string]any, error) {
	collection := m.database.Collection(table)

	filter, err := filterOf(d)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find()
	if d != nil {
		if len(d.Fields()) > 0 {
			projection := bson.D{}
			for _, field := range d.Fields() {
				projection = append(projection, bson.E{Key: field, Value: 1})
			}
			findOptions.SetProjection(projection)
		}
		if len(d.Order()) > 0 {
			sort := bson.D{}
			for _, o := range d.Order() {
				direction := 1
				if o.Direction == query.Desc {
					direction = -1
				}
				sort = append(sort, bson.E{Key: o.Field, Value: direction})
			}
			findOptions.SetSort(sort)
		}
		if d.Limit() > 0 {
			findOptions.SetLimit(int64(d.Limit()))
		}
		if d.Offset() > 0 {
			findOptions.SetSkip(int64(d.Offset()))
		}
	}

	cursor, err := collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []map[string]any
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, map[string]any(doc))
	}
	return records, cursor.Err()
}

func (m *Mongo) Count(ctx context.Context, table string, d *query.Descriptor) (int64, error) {
	filter, err := filterOf(d)
	if err != nil {
		return 0, err
	}
	return m.database.Collection(table).CountDocuments(ctx, filter)
}

func (m *Mongo) Insert(ctx context.Context, table string, data map[string]any) (any, error) {
	doc := make(bson.M, len(data))
	for k, v := range data {
		doc[k] = v
	}

	res, err := m.database.Collection(table).InsertOne(ctx, doc)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, errors.WithMessage(backend.ErrDuplicateKey, err.Error())
		}
		return nil, err
	}
	return res.InsertedID, nil
}

func (m *Mongo) UpdateByKey(ctx context.Context, table string, key map[string]any, data map[string]any) (bool, error) {
	res, err := m.database.Collection(table).UpdateOne(ctx, bson.M(key), bson.M{"$set": bson.M(data)})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) UpdateByQuery(ctx context.Context, table string, d *query.Descriptor, data map[string]any) (bool, error) {
	filter, err := filterOf(d)
	if err != nil {
		return false, err
	}
	if _, err := m.database.Collection(table).UpdateMany(ctx, filter, bson.M{"$set": bson.M(data)}); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Mongo) DeleteByKey(ctx context.Context, table string, key map[string]any) (bool, error) {
	res, err := m.database.Collection(table).DeleteOne(ctx, bson.M(key))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (m *Mongo) DeleteByQuery(ctx context.Context, table string, d *query.Descriptor) (bool, error) {
	filter, err := filterOf(d)
	if err != nil {
		return false, err
	}
	if _, err := m.database.Collection(table).DeleteMany(ctx, filter); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Mongo) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
