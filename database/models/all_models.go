package models

// AllModels contains all the tables contained in warden's database
var AllModels = []interface{}{
	&Profile{},
	&DownloadKey{},
	&Cave{},
	&Download{},
	&GameSnapshot{},
}
