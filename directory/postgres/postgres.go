// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package postgres implements the directory store on PostgreSQL.

Deleting a bootcamp cascades to its courses and reviews through foreign
keys. Deleting a user does not cascade, published content stays in the
directory. The unique index on review (bootcamp_id, user_id) and on the
user email are the authoritative guards for the respective constraints,
violations surface as Conflict.
*/
package postgres

import (
	"github.com/relabs-tech/campdir/core/csql"
	"github.com/relabs-tech/campdir/directory"
)

// New creates the database tables if necessary and returns the store.
func New(db *csql.DB) (directory.Store, error) {
	_, err := db.Exec(`CREATE table IF NOT EXISTS ` + db.Schema + `."user"
(user_id uuid NOT NULL DEFAULT uuid_generate_v4(),
name varchar NOT NULL,
email varchar NOT NULL UNIQUE,
role varchar NOT NULL,
password_hash varchar NOT NULL,
reset_password_token varchar NOT NULL DEFAULT '',
reset_password_expire timestamp,
created_at timestamp NOT NULL DEFAULT now(),
PRIMARY KEY(user_id)
);

CREATE table IF NOT EXISTS ` + db.Schema + `."bootcamp"
(bootcamp_id uuid NOT NULL DEFAULT uuid_generate_v4(),
user_id uuid NOT NULL,
name varchar NOT NULL,
description varchar NOT NULL,
website varchar NOT NULL DEFAULT '',
phone varchar NOT NULL DEFAULT '',
email varchar NOT NULL DEFAULT '',
address varchar NOT NULL DEFAULT '',
latitude double precision,
longitude double precision,
careers varchar[] NOT NULL DEFAULT '{}',
housing boolean NOT NULL DEFAULT false,
job_assistance boolean NOT NULL DEFAULT false,
job_guarantee boolean NOT NULL DEFAULT false,
accept_gi boolean NOT NULL DEFAULT false,
photo varchar NOT NULL DEFAULT '',
average_cost double precision,
average_rating double precision,
created_at timestamp NOT NULL DEFAULT now(),
PRIMARY KEY(bootcamp_id)
);

CREATE table IF NOT EXISTS ` + db.Schema + `."course"
(course_id uuid NOT NULL DEFAULT uuid_generate_v4(),
bootcamp_id uuid NOT NULL references ` + db.Schema + `."bootcamp"(bootcamp_id) ON DELETE CASCADE,
user_id uuid NOT NULL,
title varchar NOT NULL,
description varchar NOT NULL,
weeks varchar NOT NULL,
tuition double precision NOT NULL,
minimum_skill varchar NOT NULL,
scholarship_available boolean NOT NULL DEFAULT false,
created_at timestamp NOT NULL DEFAULT now(),
PRIMARY KEY(course_id)
);

CREATE table IF NOT EXISTS ` + db.Schema + `."review"
(review_id uuid NOT NULL DEFAULT uuid_generate_v4(),
bootcamp_id uuid NOT NULL references ` + db.Schema + `."bootcamp"(bootcamp_id) ON DELETE CASCADE,
user_id uuid NOT NULL,
title varchar NOT NULL,
text varchar NOT NULL,
rating integer NOT NULL,
created_at timestamp NOT NULL DEFAULT now(),
PRIMARY KEY(review_id),
UNIQUE(bootcamp_id, user_id)
);`)
	if err != nil {
		return directory.Store{}, err
	}

	return directory.Store{
		Bootcamps: &bootcampStore{db},
		Courses:   &courseStore{db},
		Reviews:   &reviewStore{db},
		Users:     &userStore{db},
	}, nil
}
