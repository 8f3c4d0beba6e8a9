// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/campdir/api"
	"github.com/relabs-tech/campdir/core/blob"
	"github.com/relabs-tech/campdir/core/csql"
	"github.com/relabs-tech/campdir/core/geocode"
	"github.com/relabs-tech/campdir/core/logger"
	"github.com/relabs-tech/campdir/core/mail"
	"github.com/relabs-tech/campdir/directory/postgres"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type Service struct {
	Postgres         string        `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string        `env:"POSTGRES_PASSWORD,default=" description:"password to the Postgres DB"`
	Port             string        `env:"PORT,default=3000" description:"the port the service listens on"`
	TokenSecret      string        `env:"TOKEN_SECRET,required" description:"the HMAC secret for JWT signing"`
	TokenExpiry      time.Duration `env:"TOKEN_EXPIRY,default=720h" description:"the lifetime of issued tokens"`
	MapQuestKey      string        `env:"MAPQUEST_API_KEY,default=" description:"the MapQuest key for geocoding, optional"`
	MaxUploadSize    int64         `env:"MAX_FILE_UPLOAD,default=1000000" description:"the photo upload limit in bytes"`
	UploadPath       string        `env:"FILE_UPLOAD_PATH,default=./public/uploads" description:"where photos are stored when S3 is not configured"`

	S3Region    string `env:"S3_REGION,default=" description:"the AWS region of the photo bucket, optional"`
	S3Bucket    string `env:"S3_BUCKET,default=" description:"the AWS bucket for photos, optional"`
	S3AccessID  string `env:"S3_ACCESS_ID,default=" description:"the AWS access key id for the photo bucket"`
	S3AccessKey string `env:"S3_ACCESS_KEY,default=" description:"the AWS secret access key for the photo bucket"`

	SMTPHost     string `env:"SMTP_HOST,default=" description:"the SMTP relay for password reset mails, optional"`
	SMTPPort     int    `env:"SMTP_PORT,default=587" description:"the SMTP port"`
	SMTPUsername string `env:"SMTP_USERNAME,default=" description:"the SMTP user"`
	SMTPPassword string `env:"SMTP_PASSWORD,default=" description:"the SMTP password"`
	SMTPFrom     string `env:"SMTP_FROM,default=noreply@campdir.io" description:"the sender of password reset mails"`
}

func main() {
	logger.InitLogger(logrus.InfoLevel)
	rlog := logger.Default()

	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		rlog.WithError(err).Fatalln("cannot decode environment")
	}

	db := csql.OpenWithSchema(service.Postgres, service.PostgresPassword, "campdir")
	defer db.Close()

	store, err := postgres.New(db)
	if err != nil {
		rlog.WithError(err).Fatalln("cannot create store")
	}

	var geocoder geocode.Geocoder
	if service.MapQuestKey != "" {
		geocoder = geocode.NewMapQuest(service.MapQuestKey)
	} else {
		rlog.Warnln("no MapQuest key, addresses stay ungeocoded")
	}

	var mailer mail.Mailer = mail.LogMailer{}
	if service.SMTPHost != "" {
		mailer = mail.NewSMTP(service.SMTPHost, service.SMTPPort, service.SMTPUsername,
			service.SMTPPassword, service.SMTPFrom)
	}

	blobConfiguration := blob.Configuration{
		DriverType: blob.DriverTypeLocal,
		LocalConfiguration: &blob.LocalConfiguration{
			BasePath: service.UploadPath,
		},
	}
	if service.S3Bucket != "" {
		blobConfiguration = blob.Configuration{
			DriverType: blob.DriverTypeAWSS3,
			S3Configuration: &blob.S3Configuration{
				AWSRegion:     service.S3Region,
				AWSBucketName: service.S3Bucket,
				AccessID:      service.S3AccessID,
				AccessKey:     service.S3AccessKey,
			},
		}
	}
	driver, err := blob.NewDriver(blobConfiguration)
	if err != nil {
		rlog.WithError(err).Fatalln("cannot create photo storage")
	}

	router := mux.NewRouter()
	api.MustNew(api.Builder{
		Router:        router,
		Store:         store,
		TokenSecret:   service.TokenSecret,
		TokenExpiry:   service.TokenExpiry,
		Geocoder:      geocoder,
		Mailer:        mailer,
		Blob:          driver,
		MaxUploadSize: service.MaxUploadSize,
	})

	rlog.Infoln("listen on port :" + service.Port)
	err = http.ListenAndServe(":"+service.Port,
		handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(os.Stdout, router)))
	if err != nil {
		rlog.WithError(err).Fatalln("server stopped")
	}
}
