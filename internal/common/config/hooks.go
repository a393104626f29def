package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/benchtool/benchtool/internal/common/util"
)

var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		ListDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)),
}

// ListDecodeHook splits comma separated strings into string slices, trimming each item.
// Commas inside braces do not split, so expressions with several arguments stay whole.
func ListDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// check that src and target types are valid
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		return util.SplitList(data.(string)), nil
	}
}
